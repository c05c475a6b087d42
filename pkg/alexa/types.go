// Package alexa holds the smart home skill wire envelopes: inbound directives,
// responses, error responses and proactive change reports.
package alexa

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PayloadVersion is the envelope version the adapter speaks.
const PayloadVersion = "3"

// Namespaces
const (
	NamespaceAlexa                = "Alexa"
	NamespaceDiscovery            = "Alexa.Discovery"
	NamespacePowerController      = "Alexa.PowerController"
	NamespaceBrightnessController = "Alexa.BrightnessController"
	NamespaceColorController      = "Alexa.ColorController"
	NamespaceEndpointHealth       = "Alexa.EndpointHealth"
	NamespaceAuthorization        = "Alexa.Authorization"
)

// Property names
const (
	PropertyPowerState   = "powerState"
	PropertyBrightness   = "brightness"
	PropertyColor        = "color"
	PropertyConnectivity = "connectivity"
)

// Error types reported in ErrorResponse payloads
const (
	ErrorInvalidAuthorization = "INVALID_AUTHORIZATION_CREDENTIAL"
	ErrorNoSuchEndpoint       = "NO_SUCH_ENDPOINT"
	ErrorInvalidDirective     = "INVALID_DIRECTIVE"
	ErrorInvalidValue         = "INVALID_VALUE"
	ErrorInternal             = "INTERNAL_ERROR"
)

// Change report causes
const (
	CausePhysicalInteraction = "PHYSICAL_INTERACTION"
	CauseAppInteraction      = "APP_INTERACTION"
)

// DefaultUncertainty is reported on every property sample.
const DefaultUncertainty = 500

// NormalizeNamespace accepts both "PowerController" and "Alexa.PowerController".
func NormalizeNamespace(ns string) string {
	ns = strings.TrimSpace(ns)
	if ns == "" || ns == NamespaceAlexa || strings.HasPrefix(ns, NamespaceAlexa+".") {
		return ns
	}
	return NamespaceAlexa + "." + ns
}

// --- Directive (inbound) ---

// Request is the body posted by the platform.
type Request struct {
	Directive Directive `json:"directive"`
}

// Directive is a single control or query request.
type Directive struct {
	Header   Header          `json:"header"`
	Endpoint *Endpoint       `json:"endpoint,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`

	// TransportToken is a credential supplied out of band (an HTTP
	// Authorization header). It is only used when no scope carries a token.
	TransportToken string `json:"-"`
}

// Header identifies a directive or event.
type Header struct {
	Namespace        string `json:"namespace"`
	Name             string `json:"name"`
	MessageID        string `json:"messageId"`
	CorrelationToken string `json:"correlationToken,omitempty"`
	PayloadVersion   string `json:"payloadVersion,omitempty"`
}

// Scope carries the bearer credential.
type Scope struct {
	Type  string `json:"type,omitempty"`
	Token string `json:"token"`
}

// Endpoint addresses one device.
type Endpoint struct {
	Scope      *Scope            `json:"scope,omitempty"`
	EndpointID string            `json:"endpointId"`
	Cookie     map[string]string `json:"cookie,omitempty"`
}

// DirectivePayload is the union of the payload fields the adapter reads.
type DirectivePayload struct {
	Scope           *Scope `json:"scope,omitempty"`
	Grantee         *Scope `json:"grantee,omitempty"`
	Brightness      *int   `json:"brightness,omitempty"`
	BrightnessDelta *int   `json:"brightnessDelta,omitempty"`
	Color           *Color `json:"color,omitempty"`
	Grant           *struct {
		Type string `json:"type"`
		Code string `json:"code"`
	} `json:"grant,omitempty"`
}

// Color is the platform HSV color value.
type Color struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Brightness float64 `json:"brightness"`
}

// ParsePayload decodes the directive payload. An absent payload yields zero values.
func (d *Directive) ParsePayload() (DirectivePayload, error) {
	var p DirectivePayload
	if len(d.Payload) == 0 || string(d.Payload) == "null" {
		return p, nil
	}
	err := json.Unmarshal(d.Payload, &p)
	return p, err
}

// BearerToken returns the scope token from the endpoint, the payload
// (Discovery and AcceptGrant carry it there), the grantee, or finally the
// transport token.
func (d *Directive) BearerToken(p DirectivePayload) string {
	if d.Endpoint != nil && d.Endpoint.Scope != nil && d.Endpoint.Scope.Token != "" {
		return d.Endpoint.Scope.Token
	}
	if p.Scope != nil && p.Scope.Token != "" {
		return p.Scope.Token
	}
	if p.Grantee != nil && p.Grantee.Token != "" {
		return p.Grantee.Token
	}
	return d.TransportToken
}

// EndpointID returns the targeted endpoint id, or "" for endpoint-less directives.
func (d *Directive) EndpointID() string {
	if d.Endpoint == nil {
		return ""
	}
	return d.Endpoint.EndpointID
}

// --- Responses (outbound) ---

// Response is the envelope returned for every directive.
type Response struct {
	Context *Context `json:"context,omitempty"`
	Event   Event    `json:"event"`
}

// Context carries property snapshots.
type Context struct {
	Properties []Property `json:"properties"`
}

// Event is the outbound event body.
type Event struct {
	Header   Header    `json:"header"`
	Endpoint *Endpoint `json:"endpoint,omitempty"`
	Payload  any       `json:"payload"`
}

// Property is one sampled property value.
type Property struct {
	Namespace                 string `json:"namespace"`
	Name                      string `json:"name"`
	Value                     any    `json:"value"`
	TimeOfSample              string `json:"timeOfSample"`
	UncertaintyInMilliseconds int    `json:"uncertaintyInMilliseconds"`
}

// NewProperty samples a property at t.
func NewProperty(namespace, name string, value any, t time.Time) Property {
	return Property{
		Namespace:                 namespace,
		Name:                      name,
		Value:                     value,
		TimeOfSample:              t.UTC().Format(time.RFC3339),
		UncertaintyInMilliseconds: DefaultUncertainty,
	}
}

// PowerValue renders a power state as ON/OFF.
func PowerValue(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

// ConnectivityValue renders reachability for the EndpointHealth interface.
func ConnectivityValue(reachable bool) map[string]string {
	if reachable {
		return map[string]string{"value": "OK"}
	}
	return map[string]string{"value": "UNREACHABLE"}
}

// ErrorPayload is the payload of an ErrorResponse.
type ErrorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewMessageID returns a fresh message id.
func NewMessageID() string {
	return uuid.NewString()
}

// ResponseHeader builds a header answering the directive header h.
func ResponseHeader(h Header, namespace, name string) Header {
	return Header{
		Namespace:        namespace,
		Name:             name,
		MessageID:        NewMessageID(),
		CorrelationToken: h.CorrelationToken,
		PayloadVersion:   PayloadVersion,
	}
}

// NewErrorResponse builds an Alexa.ErrorResponse for the directive.
func NewErrorResponse(d Directive, errType, message string) *Response {
	resp := &Response{
		Event: Event{
			Header:  ResponseHeader(d.Header, NamespaceAlexa, "ErrorResponse"),
			Payload: ErrorPayload{Type: errType, Message: message},
		},
	}
	if id := d.EndpointID(); id != "" {
		resp.Event.Endpoint = &Endpoint{EndpointID: id}
	}
	return resp
}

// IsError reports whether the response is an ErrorResponse.
func (r *Response) IsError() bool {
	return r.Event.Header.Namespace == NamespaceAlexa && r.Event.Header.Name == "ErrorResponse"
}
