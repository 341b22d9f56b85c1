package main

import (
	"context"
	"os"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	adapterlogger "security-console/internal/adapters/logger"
	"security-console/internal/infrastructure"
	"security-console/internal/platform/lambda"
	"security-console/internal/platform/wiring"
)

func main() {
	ctx := context.Background()
	cfg, err := infrastructure.LoadConfig()
	if err != nil {
		adapterlogger.New(nil).Error(ctx, "configuration error", "error", err)
		os.Exit(1)
	}
	logger := adapterlogger.New(adapterlogger.ParseLevel(cfg.LogLevel))

	app, err := wiring.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}
	if cfg.SyncOnStartup {
		app.SyncAll(ctx)
	}
	awslambda.Start(lambda.NewLambdaHandler(app.Echo, logger))
}
