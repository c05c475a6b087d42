package alexa

// ChangeReportPayload is the payload of an Alexa.ChangeReport event.
type ChangeReportPayload struct {
	Change Change `json:"change"`
}

// Change lists the properties that changed and why.
type Change struct {
	Cause      Cause      `json:"cause"`
	Properties []Property `json:"properties"`
}

// Cause explains a change.
type Cause struct {
	Type string `json:"type"`
}

// ChangeReport is the envelope posted to the event gateway.
type ChangeReport struct {
	Context Context `json:"context"`
	Event   Event   `json:"event"`
}

// NewChangeReport builds a proactive report for endpointID. The scope token is
// filled in by the forwarder.
func NewChangeReport(endpointID, cause string, props ...Property) ChangeReport {
	return ChangeReport{
		Context: Context{Properties: []Property{}},
		Event: Event{
			Header: Header{
				Namespace:      NamespaceAlexa,
				Name:           "ChangeReport",
				MessageID:      NewMessageID(),
				PayloadVersion: PayloadVersion,
			},
			Endpoint: &Endpoint{EndpointID: endpointID},
			Payload: ChangeReportPayload{
				Change: Change{
					Cause:      Cause{Type: cause},
					Properties: props,
				},
			},
		},
	}
}

// WithToken returns a copy of the report scoped to the given bearer token.
func (c ChangeReport) WithToken(token string) ChangeReport {
	ep := Endpoint{EndpointID: c.EndpointID(), Scope: &Scope{Type: "BearerToken", Token: token}}
	c.Event.Endpoint = &ep
	return c
}

// EndpointID returns the reported endpoint.
func (c ChangeReport) EndpointID() string {
	if c.Event.Endpoint == nil {
		return ""
	}
	return c.Event.Endpoint.EndpointID
}

// Properties returns the changed properties.
func (c ChangeReport) Properties() []Property {
	if p, ok := c.Event.Payload.(ChangeReportPayload); ok {
		return p.Change.Properties
	}
	return nil
}
