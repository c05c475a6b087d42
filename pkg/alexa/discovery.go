package alexa

// ManufacturerName is advertised for every discovered endpoint.
const ManufacturerName = "ESP32Home"

// DiscoveryPayload is the payload of Discover.Response.
type DiscoveryPayload struct {
	Endpoints []DiscoveredEndpoint `json:"endpoints"`
}

// DiscoveredEndpoint describes one device to the platform.
type DiscoveredEndpoint struct {
	EndpointID        string            `json:"endpointId"`
	ManufacturerName  string            `json:"manufacturerName"`
	FriendlyName      string            `json:"friendlyName"`
	Description       string            `json:"description"`
	DisplayCategories []string          `json:"displayCategories"`
	Cookie            map[string]string `json:"cookie,omitempty"`
	Capabilities      []Capability      `json:"capabilities"`
}

// Capability advertises one interface.
type Capability struct {
	Type       string                `json:"type"`
	Interface  string                `json:"interface"`
	Version    string                `json:"version"`
	Properties *CapabilityProperties `json:"properties,omitempty"`
}

// CapabilityProperties lists supported properties of an interface.
type CapabilityProperties struct {
	Supported           []SupportedProperty `json:"supported"`
	ProactivelyReported bool                `json:"proactivelyReported"`
	Retrievable         bool                `json:"retrievable"`
}

// SupportedProperty names one property.
type SupportedProperty struct {
	Name string `json:"name"`
}

// NewCapability builds an interface capability exposing a single property.
func NewCapability(iface, property string) Capability {
	return Capability{
		Type:      "AlexaInterface",
		Interface: iface,
		Version:   PayloadVersion,
		Properties: &CapabilityProperties{
			Supported:           []SupportedProperty{{Name: property}},
			ProactivelyReported: true,
			Retrievable:         true,
		},
	}
}

// BaseCapability is the "Alexa" interface every endpoint must list.
func BaseCapability() Capability {
	return Capability{Type: "AlexaInterface", Interface: NamespaceAlexa, Version: PayloadVersion}
}
