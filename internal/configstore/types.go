// Package configstore loads, validates, cross-reference-prunes,
// atomically persists, and hot-reloads the four config categories
// (clients/servers/events/sinks) plus the root config (spec §4.4).
package configstore

import "github.com/hycord/irc-notify/internal/filter"

// RootConfig is the top-level daemon config (spec §3).
type RootConfig struct {
	PollIntervalMS       int           `json:"pollIntervalMs"`
	Debug                bool          `json:"debug"`
	DefaultLogDirectory  string        `json:"defaultLogDirectory"`
	ConfigDirectory      string        `json:"configDirectory"`
	RescanLogsOnStartup  bool          `json:"rescanLogsOnStartup"`
	ControlPlane         *ControlPlane `json:"controlPlane,omitempty"`
}

// ControlPlane configures the HTTP control plane (C10). The bearer
// token itself is never part of this struct: it lives in
// auth_token.txt beside the config tree (see EnsureAuthToken) or is
// supplied via an environment variable, so it can never leak into a
// config bundle export.
type ControlPlane struct {
	Enabled        bool   `json:"enabled"`
	Port           int    `json:"port"`
	Host           string `json:"host"`
	FileOpsEnabled bool   `json:"fileOpsEnabled"`
}

// Discovery describes how a client's log directory maps to console,
// channel, and query files, plus how to pull the server identifier
// out of the path.
type Discovery struct {
	ConsoleGlobs []string      `json:"consoleGlobs,omitempty"`
	ChannelGlobs []string      `json:"channelGlobs,omitempty"`
	QueryGlobs   []string      `json:"queryGlobs,omitempty"`

	ConsolePattern *PathPattern `json:"consolePattern,omitempty"`
	ChannelPattern *PathPattern `json:"channelPattern,omitempty"`
	QueryPattern   *PathPattern `json:"queryPattern,omitempty"`
	ServerPattern  *PathPattern `json:"serverPattern,omitempty"`
}

// PathPattern is a regex plus the named/indexed group it extracts.
type PathPattern struct {
	Pattern string `json:"pattern"`
	Group   string `json:"group"`
}

// ServerDiscoveryMode selects how a client discovers its servers.
type ServerDiscoveryMode string

const (
	ServerDiscoveryStatic     ServerDiscoveryMode = "static"
	ServerDiscoveryFilesystem ServerDiscoveryMode = "filesystem"
	ServerDiscoveryJSON       ServerDiscoveryMode = "json"
	ServerDiscoverySQLite     ServerDiscoveryMode = "sqlite"
)

// ServerDiscovery describes how a client enumerates its servers.
type ServerDiscovery struct {
	Mode ServerDiscoveryMode `json:"mode"`

	// static
	Static []StaticServer `json:"static,omitempty"`

	// filesystem
	Glob            string `json:"glob,omitempty"`
	HostnamePattern string `json:"hostnamePattern,omitempty"`

	// json
	JSONPath       string `json:"jsonPath,omitempty"`
	HostnameField  string `json:"hostnameField,omitempty"`

	// sqlite
	SQLitePath  string `json:"sqlitePath,omitempty"`
	SQLiteQuery string `json:"sqliteQuery,omitempty"`
}

// StaticServer is one entry of a static server-discovery list.
type StaticServer struct {
	Hostname string `json:"hostname"`
}

// FileType selects how a client's log files are read.
type FileType string

const (
	FileTypeText   FileType = "text"
	FileTypeSQLite FileType = "sqlite"
	FileTypeJSON   FileType = "json"
)

// FileTypeConfig describes the read cadence for non-text file types.
type FileTypeConfig struct {
	Type FileType `json:"type"`

	// sqlite
	SQLiteTable     string `json:"sqliteTable,omitempty"`
	SQLiteTextCol   string `json:"sqliteTextColumn,omitempty"`
	SQLiteRowIDCol  string `json:"sqliteRowIdColumn,omitempty"`

	// json
	JSONLinesField string `json:"jsonLinesField,omitempty"`

	PollIntervalMS int `json:"pollIntervalMs,omitempty"`
}

// ParserRule is one priority-ordered line-matching rule (spec §3).
type ParserRule struct {
	Name        string            `json:"name"`
	Pattern     string            `json:"pattern"`
	Flags       string            `json:"flags,omitempty"`
	MessageType string            `json:"messageType,omitempty"`
	Captures    map[string]string `json:"captures,omitempty"`
	Skip        bool              `json:"skip,omitempty"`
	Priority    int               `json:"priority"`
}

// ClientConfig is one IRC client kind/instance (spec §3).
type ClientConfig struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Name        string                 `json:"name"`
	Enabled     bool                   `json:"enabled"`
	LogDirectory string                `json:"logDirectory"`
	Discovery   Discovery              `json:"discovery"`
	ServerDiscovery ServerDiscovery    `json:"serverDiscovery"`
	FileType    FileTypeConfig         `json:"fileType"`
	ParserRules []ParserRule           `json:"parserRules"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// KnownUser is one entry of a server's known-users map.
type KnownUser struct {
	Realname string                 `json:"realname,omitempty"`
	Modes    []string               `json:"modes,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ServerConfig is one IRC server (spec §3).
type ServerConfig struct {
	ID             string                 `json:"id"`
	Hostname       string                 `json:"hostname"`
	DisplayName    string                 `json:"displayName"`
	ClientNickname string                 `json:"clientNickname"`
	Network        string                 `json:"network,omitempty"`
	Port           int                    `json:"port,omitempty"`
	TLS            bool                   `json:"tls,omitempty"`
	Enabled        bool                   `json:"enabled"`
	KnownUsers     map[string]KnownUser   `json:"knownUsers,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// UUID returns the optional metadata["uuid"] used for partial-UUID
// matching (spec §4.7.1, flagged as a client-family compatibility
// shim).
func (s ServerConfig) UUID() string {
	if s.Metadata == nil {
		return ""
	}
	v, _ := s.Metadata["uuid"].(string)
	return v
}

// BaseEvent is the coarse IRC occurrence category an event matches
// against (spec §3).
type BaseEvent string

const (
	BaseMessage    BaseEvent = "message"
	BaseJoin       BaseEvent = "join"
	BasePart       BaseEvent = "part"
	BaseQuit       BaseEvent = "quit"
	BaseNick       BaseEvent = "nick"
	BaseKick       BaseEvent = "kick"
	BaseMode       BaseEvent = "mode"
	BaseTopic      BaseEvent = "topic"
	BaseConnect    BaseEvent = "connect"
	BaseDisconnect BaseEvent = "disconnect"
	BaseAny        BaseEvent = "any"
)

// EventConfig is one declarative notification rule (spec §3).
type EventConfig struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Enabled   bool                   `json:"enabled"`
	BaseEvent BaseEvent              `json:"baseEvent"`
	ServerIDs []string               `json:"serverIds"`
	Filter    *filter.Node           `json:"filter,omitempty"`
	SinkIDs   []string               `json:"sinkIds"`
	Priority  int                    `json:"priority"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// SinkKind selects a built-in sink implementation.
type SinkKind string

const (
	SinkNtfy    SinkKind = "ntfy"
	SinkWebhook SinkKind = "webhook"
	SinkConsole SinkKind = "console"
	SinkFile    SinkKind = "file"
	SinkCustom  SinkKind = "custom"
)

// TemplateFormat selects how a sink's title/body render.
type TemplateFormat string

const (
	FormatText     TemplateFormat = "text"
	FormatMarkdown TemplateFormat = "markdown"
	FormatJSON     TemplateFormat = "json"
)

// Template is a sink's default title/body/format.
type Template struct {
	Title  string         `json:"title,omitempty"`
	Body   string         `json:"body,omitempty"`
	Format TemplateFormat `json:"format,omitempty"`
}

// RateLimit bounds a sink's delivery rate (spec §3/I6).
type RateLimit struct {
	MaxPerMinute int `json:"maxPerMinute,omitempty"`
	MaxPerHour   int `json:"maxPerHour,omitempty"`
}

// SinkConfig is one notification destination (spec §3).
type SinkConfig struct {
	ID                string                 `json:"id"`
	Kind              SinkKind               `json:"kind"`
	Name              string                 `json:"name"`
	Enabled           bool                   `json:"enabled"`
	Config            map[string]interface{} `json:"config,omitempty"`
	Template          *Template              `json:"template,omitempty"`
	RateLimit         *RateLimit             `json:"rateLimit,omitempty"`
	AllowedMetaKeys   []string               `json:"allowedMetadataKeys,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}
