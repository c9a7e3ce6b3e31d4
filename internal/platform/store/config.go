package store

import "time"

// Config aggregates per backend configuration
type Config struct {
	AppName string

	Objects ObjectsConfig
	CH      CHConfig
}

// ObjectsConfig configures the object storage backend
type ObjectsConfig struct {
	Enabled bool

	// Backend selects the implementation: "fs" or "minio"
	Backend string

	// Root is the base directory for the fs backend
	Root string

	// MinIO connectivity, used when Backend is "minio"
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool

	// Guard/boot knobs:
	ConnectRetries int           // default 20
	PingTimeout    time.Duration // default 3s
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled  bool
	Addr     string
	Database string
	Username string
	Password string

	// ClientRole and ClientTag stamp the connection client info
	ClientRole string
	ClientTag  string
}
