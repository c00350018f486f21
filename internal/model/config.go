package model

// VolumeConfig configures the router's single in-process volume adapter.
type VolumeConfig struct {
	Type    string `json:"type"` // dac_mixer|upnp|cloud|multizone_amp|alsa|passthrough
	Step    int    `json:"step"`
	Max     int    `json:"max"`
	SafeCap int    `json:"safe_cap"`
	Target  string `json:"target"` // host:port, card name, etc. — adapter-specific
}

// TransportConfig configures the outbound channel(s) to the automation system.
type TransportConfig struct {
	Mode         string `json:"mode"` // webhook|bus|both
	WebhookURL   string `json:"webhook_url"`
	BrokerURL    string `json:"broker_url"`
	TopicPrefix  string `json:"topic_prefix"`
	DisplayName  string `json:"display_name"`
}

// Config is the router's top-level JSON configuration.
type Config struct {
	Menu             []RawMenuEntry `json:"menu"`
	Volume           VolumeConfig   `json:"volume"`
	Transport        TransportConfig `json:"transport"`
	BalanceStep      int            `json:"balance_step"`
	EatingViews      []string       `json:"eating_views"`
	UIBridgeURL      string         `json:"ui_bridge_url"`
	SourcePorts      map[string]int `json:"source_ports"` // for startup-recovery probing
}

// RawMenuEntry is one entry of the menu config's ordered mapping, as
// parsed straight from JSON before being normalized into ConfigEntry.
type RawMenuEntry struct {
	Title  string `json:"title"`
	ID     string `json:"id,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
	URL    string `json:"url,omitempty"`
}
