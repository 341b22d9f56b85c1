package domain

import (
	"fmt"
	"strings"
	"time"
)

type AppType string

const (
	AppTypeDefectDojo AppType = "DefectDojo"
	AppTypeTheHive    AppType = "TheHive"
	AppTypeOpenSearch AppType = "OpenSearch"
	AppTypeWazuh      AppType = "Wazuh"
	AppTypeSuricata   AppType = "Suricata"
	AppTypeElastic    AppType = "Elastic"
	AppTypeSplunk     AppType = "Splunk"
	AppTypeMISP       AppType = "MISP"
	AppTypeCortex     AppType = "Cortex"
	AppTypeCustom     AppType = "Custom"
)

// AppTypes lists every supported external system type in display order.
var AppTypes = []AppType{
	AppTypeDefectDojo,
	AppTypeTheHive,
	AppTypeOpenSearch,
	AppTypeWazuh,
	AppTypeSuricata,
	AppTypeElastic,
	AppTypeSplunk,
	AppTypeMISP,
	AppTypeCortex,
	AppTypeCustom,
}

// ParseAppType matches exactly; anything outside AppTypes is ErrUnknownAppType.
func ParseAppType(raw string) (AppType, error) {
	for _, t := range AppTypes {
		if string(t) == raw {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAppType, raw)
}

type ModuleType string

const (
	ModuleXDR     ModuleType = "XDR"
	ModuleXDRPlus ModuleType = "XDR+"
	ModuleOXDR    ModuleType = "OXDR"
	ModuleGSOS    ModuleType = "GSOS"
)

var ModuleTypes = []ModuleType{ModuleXDR, ModuleXDRPlus, ModuleOXDR, ModuleGSOS}

func ParseModuleType(raw string) (ModuleType, error) {
	for _, m := range ModuleTypes {
		if string(m) == raw {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown module %q", ErrInvalidInput, raw)
}

type AuthStyle string

const (
	AuthNone   AuthStyle = "none"
	AuthBasic  AuthStyle = "basic"
	AuthAPIKey AuthStyle = "api_key"
	AuthCustom AuthStyle = "custom"
)

// ResponseShape describes how a role-listing endpoint lays out its payload.
type ResponseShape string

const (
	ShapeResultsEnvelope ResponseShape = "results_envelope"
	ShapeNamedMap        ResponseShape = "named_map"
	ShapeAffectedItems   ResponseShape = "affected_items"
	ShapeWrappedRoleList ResponseShape = "wrapped_role_list"
)

// Capability is the static connection and sync metadata for one AppType.
type Capability struct {
	Type             AppType       `json:"type" yaml:"type"`
	Name             string        `json:"name" yaml:"name"`
	DefaultPort      int           `json:"default_port" yaml:"default_port"`
	Description      string        `json:"description" yaml:"description"`
	AuthType         AuthStyle     `json:"auth_type" yaml:"auth_type"`
	APIKeyScheme     string        `json:"api_key_scheme,omitempty" yaml:"api_key_scheme"`
	TokenEndpoint    string        `json:"token_endpoint,omitempty" yaml:"token_endpoint"`
	SupportsRoleSync bool          `json:"supports_role_sync" yaml:"supports_role_sync"`
	RoleEndpoint     string        `json:"role_endpoint,omitempty" yaml:"role_endpoint"`
	ResponseShape    ResponseShape `json:"response_shape,omitempty" yaml:"response_shape"`
}

// Application is a registered external security system. Password and APIKey
// hold ciphertext and never leave the process through JSON.
type Application struct {
	ID           string     `json:"id"`
	Name         string     `json:"app_name"`
	Type         AppType    `json:"app_type"`
	Module       ModuleType `json:"module"`
	RedirectURL  string     `json:"redirect_url"`
	IP           string     `json:"ip,omitempty"`
	Username     string     `json:"username,omitempty"`
	Password     string     `json:"-"`
	APIKey       string     `json:"-"`
	Description  string     `json:"description,omitempty"`
	DefaultPort  int        `json:"default_port,omitempty"`
	Active       bool       `json:"is_active"`
	LastRoleSync *time.Time `json:"last_role_sync,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// BaseURL is where the external system's API lives: the registered URL when
// present, otherwise built from the network address and port.
func (a Application) BaseURL() string {
	if a.RedirectURL != "" {
		return strings.TrimRight(a.RedirectURL, "/")
	}
	if a.IP == "" {
		return ""
	}
	if a.DefaultPort > 0 {
		return fmt.Sprintf("https://%s:%d", a.IP, a.DefaultPort)
	}
	return "https://" + a.IP
}

type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Permissions []string  `json:"permissions"`
	AppType     AppType   `json:"app_type,omitempty"`
	ExternalID  string    `json:"external_id,omitempty"`
	IsSynced    bool      `json:"is_synced"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// External reports whether the role is owned by a sync source.
func (r Role) External() bool {
	return r.AppType != "" && r.ExternalID != ""
}

// RoleKey identifies an externally sourced role.
type RoleKey struct {
	AppType    AppType
	ExternalID string
}

type UpsertOutcome int

const (
	Inserted UpsertOutcome = iota + 1
	Updated
)

func (o UpsertOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return "unknown"
	}
}

// RemoteRole is a role as reported by an external system, normalized.
type RemoteRole struct {
	ExternalID  string         `json:"external_id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Permissions []string       `json:"permissions,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// RemoteUser is an account read from DefectDojo.
type RemoteUser struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	IsActive  bool   `json:"is_active"`
}

type User struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	FirstName    string       `json:"first_name,omitempty"`
	LastName     string       `json:"last_name,omitempty"`
	PasswordHash string       `json:"-"`
	Roles        []string     `json:"roles"`
	ModuleAccess []ModuleType `json:"module_access"`
	IsAdmin      bool         `json:"is_admin"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Principal is the authenticated caller of an API request.
type Principal struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

type SyncResult struct {
	AppID       string    `json:"app_id"`
	AppName     string    `json:"app_name"`
	AppType     AppType   `json:"app_type"`
	SyncedRoles int       `json:"synced_roles"`
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	LastSync    time.Time `json:"last_sync"`
}
