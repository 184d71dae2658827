// Package tr064 implements the management connection against the
// router's TR-064 (UPnP) interface: device description and SCPD
// discovery, SOAP invocation and HTTP digest authentication.
package tr064

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fritz-collector/internal/fritz"
)

const (
	descPath         = "/tr64desc.xml"
	serviceURNPrefix = "urn:dslforum-org:service:"

	// UPnP error for an enumeration index past the last entry. The
	// poller treats it as end-of-enumeration.
	errorCodeInvalidIndex = 714

	// DefaultPort is the TR-064 port on stock devices.
	DefaultPort = 49000

	// DefaultTimeout bounds a single HTTP round trip so an unresponsive
	// device cannot wedge a cycle.
	DefaultTimeout = 10 * time.Second
)

// Dialer opens TR-064 connections and implements fritz.Dialer.
type Dialer struct {
	Timeout time.Duration
	Log     *zap.Logger
}

func (d Dialer) Dial(ctx context.Context, address string, port int, user, password string) (fritz.Connection, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if port <= 0 {
		port = DefaultPort
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return dial(ctx, address, port, user, password, timeout, log)
}

type service struct {
	serviceType string // full urn
	controlURL  string
}

// Client is one TR-064 session. It is not safe for concurrent use.
type Client struct {
	base     *url.URL
	user     string
	password string
	hc       *http.Client
	log      *zap.Logger

	services map[string]service // short service name -> endpoint
	actions  map[fritz.ActionKey]struct{}
}

func dial(ctx context.Context, address string, port int, user, password string, timeout time.Duration, log *zap.Logger) (*Client, error) {
	base, err := url.Parse(fmt.Sprintf("http://%s:%d", address, port))
	if err != nil {
		return nil, fmt.Errorf("device address %q: %w", address, err)
	}

	c := &Client{
		base:     base,
		user:     user,
		password: password,
		hc:       &http.Client{Timeout: timeout},
		log:      log,
		services: make(map[string]service),
		actions:  make(map[fritz.ActionKey]struct{}),
	}
	if err := c.discover(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Actions returns the (service, action) pairs the device advertises.
func (c *Client) Actions() map[fritz.ActionKey]struct{} {
	return c.actions
}

func (c *Client) Close() error {
	c.hc.CloseIdleConnections()
	return nil
}

// discover loads the device description and every service's SCPD to
// learn the advertised action names.
func (c *Client) discover(ctx context.Context) error {
	body, err := c.get(ctx, descPath)
	if err != nil {
		return fmt.Errorf("fetch device description: %w", err)
	}

	var root struct {
		Device descDevice `xml:"device"`
	}
	if err := xml.Unmarshal(body, &root); err != nil {
		return fmt.Errorf("parse device description: %w", err)
	}

	for _, svc := range root.Device.flatten() {
		name := shortServiceName(svc.ServiceType)
		c.services[name] = service{serviceType: svc.ServiceType, controlURL: svc.ControlURL}

		scpd, err := c.get(ctx, svc.SCPDURL)
		if err != nil {
			return fmt.Errorf("fetch SCPD for %s: %w", name, err)
		}
		var doc struct {
			Actions []string `xml:"actionList>action>name"`
		}
		if err := xml.Unmarshal(scpd, &doc); err != nil {
			return fmt.Errorf("parse SCPD for %s: %w", name, err)
		}
		for _, action := range doc.Actions {
			c.actions[fritz.ActionKey{Service: name, Action: action}] = struct{}{}
		}
	}

	c.log.Debug("device discovered",
		zap.Int("services", len(c.services)),
		zap.Int("actions", len(c.actions)))
	return nil
}

type descDevice struct {
	Services []descService `xml:"serviceList>service"`
	Devices  []descDevice  `xml:"deviceList>device"`
}

type descService struct {
	ServiceType string `xml:"serviceType"`
	ControlURL  string `xml:"controlURL"`
	SCPDURL     string `xml:"SCPDURL"`
}

func (d descDevice) flatten() []descService {
	services := append([]descService(nil), d.Services...)
	for _, sub := range d.Devices {
		services = append(services, sub.flatten()...)
	}
	return services
}

// shortServiceName reduces a service URN to the "Name:Version" form the
// schemas use, e.g. "urn:dslforum-org:service:WANIPConnection:1" ->
// "WANIPConnection:1".
func shortServiceName(urn string) string {
	parts := strings.Split(urn, ":")
	if len(parts) < 2 {
		return urn
	}
	return parts[len(parts)-2] + ":" + parts[len(parts)-1]
}

// Invoke performs one SOAP action. An unknown service and the
// past-the-end enumeration fault both yield an empty reading set; a
// malformed response yields *fritz.InvalidDataError.
func (c *Client) Invoke(ctx context.Context, svcName, action string, params map[string]string) (fritz.ReadingSet, error) {
	svc, ok := c.services[svcName]
	if !ok {
		return nil, nil
	}

	envelope := buildEnvelope(svc.serviceType, action, params)
	soapAction := fmt.Sprintf(`"%s#%s"`, svc.serviceType, action)

	status, body, err := c.post(ctx, svc.controlURL, soapAction, envelope)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusUnauthorized:
		return nil, &fritz.InvalidDataError{
			Service: svcName, Action: action,
			Underlying: errors.New("action rejected: unauthorized"),
		}
	case status == http.StatusInternalServerError:
		code := faultCode(body)
		if code == errorCodeInvalidIndex {
			return nil, nil
		}
		return nil, &fritz.InvalidDataError{
			Service: svcName, Action: action,
			Underlying: fmt.Errorf("SOAP fault %d", code),
		}
	case status != http.StatusOK:
		return nil, &fritz.InvalidDataError{
			Service: svcName, Action: action,
			Underlying: fmt.Errorf("unexpected HTTP status %d", status),
		}
	}

	readings, err := parseResponse(body, action)
	if err != nil {
		return nil, &fritz.InvalidDataError{Service: svcName, Action: action, Underlying: err}
	}
	return readings, nil
}

func buildEnvelope(serviceType, action string, params map[string]string) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"` +
		` s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/"><s:Body>`)
	fmt.Fprintf(&b, `<u:%s xmlns:u=%q>`, action, serviceType)
	for name, value := range params {
		var arg bytes.Buffer
		_ = xml.EscapeText(&arg, []byte(value))
		fmt.Fprintf(&b, "<%s>%s</%s>", name, arg.String(), name)
	}
	fmt.Fprintf(&b, `</u:%s></s:Body></s:Envelope>`, action)
	return b.Bytes()
}

// parseResponse extracts the named outputs from the <ActionResponse>
// element. Integer-looking values are parsed so the conversion layer
// receives numerics where the device sent numerics.
func parseResponse(body []byte, action string) (fritz.ReadingSet, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	wantResponse := action + "Response"
	readings := make(fritz.ReadingSet)

	inResponse := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed SOAP response: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == wantResponse {
				inResponse = true
				continue
			}
			if !inResponse {
				continue
			}
			var text string
			if err := dec.DecodeElement(&text, &el); err != nil {
				return nil, fmt.Errorf("malformed SOAP argument %s: %w", el.Name.Local, err)
			}
			readings[el.Name.Local] = coerce(text)
		case xml.EndElement:
			if el.Name.Local == wantResponse {
				return readings, nil
			}
		}
	}

	if !inResponse {
		return nil, fmt.Errorf("response element %s missing", wantResponse)
	}
	return readings, nil
}

func coerce(text string) any {
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n
	}
	if n, err := strconv.ParseUint(text, 10, 64); err == nil {
		return n
	}
	return text
}

func faultCode(body []byte) int {
	var fault struct {
		Code int `xml:"Body>Fault>detail>UPnPError>errorCode"`
	}
	if err := xml.Unmarshal(body, &fault); err != nil {
		return 0
	}
	return fault.Code
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(path), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: HTTP %d", path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// post sends the SOAP envelope, answering a digest challenge once when
// credentials are configured.
func (c *Client) post(ctx context.Context, path, soapAction string, envelope []byte) (int, []byte, error) {
	resp, err := c.postOnce(ctx, path, soapAction, envelope, "")
	if err != nil {
		return 0, nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.password != "" {
		header := resp.Header.Get("WWW-Authenticate")
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		ch, err := parseChallenge(header)
		if err != nil {
			return 0, nil, &fritz.InvalidDataError{Underlying: err}
		}
		auth := ch.authorize(http.MethodPost, path, c.user, c.password)
		resp, err = c.postOnce(ctx, path, soapAction, envelope, auth)
		if err != nil {
			return 0, nil, err
		}
	}

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func (c *Client) postOnce(ctx context.Context, path, soapAction string, envelope []byte, auth string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(path), bytes.NewReader(envelope))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPAction", soapAction)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	return c.hc.Do(req)
}

func (c *Client) resolve(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return c.base.String() + path
	}
	return c.base.ResolveReference(ref).String()
}
