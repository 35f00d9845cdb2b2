package config

// Client side configuration for the console realtime core. The
// config is normally loaded from a YAML file but every setting
// relevant for deployment can be overriden from the environment.
type ClientConfig struct {
	// Websocket endpoint for server pushes. The auth token is
	// appended as a query parameter when dialing.
	WSUrl string `json:"ws_url"`

	// Base URL for the REST collaborator surface.
	APIUrl string `json:"api_url"`

	// Reconnect policy: delay before attempt k is
	// reconnect_base_ms * 2^(k-1), up to reconnect_max_attempts
	// attempts. After that the connection stays down until an
	// explicit reconnect.
	ReconnectBaseMs      int `json:"reconnect_base_ms"`
	ReconnectMaxAttempts int `json:"reconnect_max_attempts"`

	// Upper bound on outbound frames per second.
	SendRateHz int `json:"send_rate_hz"`

	// Location of the session writeback file.
	WritebackPath string `json:"writeback_path"`

	// How many executions we retain per workflow.
	WorkflowHistorySize int `json:"workflow_history_size"`
}

type Config struct {
	Version string        `json:"version,omitempty"`
	Client  *ClientConfig `json:"Client"`

	Verbose bool `json:"verbose,omitempty"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Client: &ClientConfig{
			WSUrl:                "ws://localhost:8089/ws",
			APIUrl:               "http://localhost:8089/api/v1",
			ReconnectBaseMs:      3000,
			ReconnectMaxAttempts: 5,
			SendRateHz:           10,
			WritebackPath:        "$HOME/.argus/console.writeback.yaml",
			WorkflowHistorySize:  50,
		},
	}
}
