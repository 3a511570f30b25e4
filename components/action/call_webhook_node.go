/*
 * Copyright 2025 The BizFlow Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package action

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"github.com/bizflow/bizflow/api/types"
	"github.com/bizflow/bizflow/utils/json"
	"github.com/bizflow/bizflow/utils/maps"
)

func init() {
	Registry.Add(&CallWebhookNode{})
}

// CallWebhookNodeConfiguration defines the callWebhook action parameters.
type CallWebhookNodeConfiguration struct {
	// Url is the webhook endpoint. Supports ${} placeholders.
	Url string
	// RequestMethod defaults to POST.
	RequestMethod string
	// Headers are sent with the request. Keys and values support ${}
	// placeholders.
	Headers map[string]string
	// Body is the request payload. Supports ${} placeholders. When empty
	// the trigger context is sent as JSON.
	Body string
	// ReadTimeoutMs bounds the whole call. Default 2000, 0 means no limit.
	ReadTimeoutMs int
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
	// EnableProxy routes the call through a proxy.
	EnableProxy bool
	// UseSystemProxyProperties takes the proxy from HTTP_PROXY/HTTPS_PROXY.
	UseSystemProxyProperties bool
	// ProxyScheme is http, https or socks5.
	ProxyScheme string
	ProxyHost   string
	ProxyPort   int
	ProxyUser   string
	ProxyPassword string
}

// CallWebhookNode posts the trigger context to an external URL.
// Webhook delivery is best effort: failures are recorded on the
// enclosing execution and never retried.
type CallWebhookNode struct {
	Config     CallWebhookNodeConfiguration
	ruleConfig types.Config
	httpClient *http.Client
}

// Type returns the component type identifier.
func (x *CallWebhookNode) Type() string {
	return "call-webhook"
}

// New creates a new instance.
func (x *CallWebhookNode) New() types.ActionNode {
	return &CallWebhookNode{Config: CallWebhookNodeConfiguration{
		RequestMethod: "POST",
		Headers:       map[string]string{"Content-Type": "application/json"},
		ReadTimeoutMs: 2000,
	}}
}

// Init decodes the action parameters and builds the http client.
func (x *CallWebhookNode) Init(ruleConfig types.Config, params types.Configuration) error {
	x.Config.RequestMethod = "POST"
	x.Config.ReadTimeoutMs = 2000
	if err := maps.Map2Struct(params, &x.Config); err != nil {
		return err
	}
	x.ruleConfig = ruleConfig
	if x.Config.Url == "" {
		return errors.New("call-webhook: url is required")
	}
	if x.Config.RequestMethod == "" {
		x.Config.RequestMethod = "POST"
	}
	x.Config.RequestMethod = strings.ToUpper(x.Config.RequestMethod)
	if x.Config.Headers == nil {
		x.Config.Headers = map[string]string{"Content-Type": "application/json"}
	}
	x.httpClient = newHttpClient(x.Config)
	return nil
}

// Execute sends the request. A non-2xx response is an error so the
// outcome lands on the execution record.
func (x *CallWebhookNode) Execute(ctx context.Context, ectx *types.ExecutionContext) (types.Configuration, error) {
	data := templateData(x.ruleConfig, ectx)
	endpointUrl := renderString(x.Config.Url, data)
	var body []byte
	if x.Config.Body != "" {
		body = []byte(renderString(x.Config.Body, data))
	} else {
		var err error
		body, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, x.Config.RequestMethod, endpointUrl, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for key, value := range x.Config.Headers {
		req.Header.Set(renderString(key, data), renderString(value, data))
	}
	response, err := x.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = response.Body.Close()
	}()
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("call-webhook: %s returned %s", endpointUrl, response.Status)
	}
	return types.Configuration{"webhook_status": response.StatusCode}, nil
}

// Destroy releases resources.
func (x *CallWebhookNode) Destroy() {
	if x.httpClient != nil {
		x.httpClient.CloseIdleConnections()
	}
}

// newHttpClient creates the http client, wiring the optional proxy.
func newHttpClient(config CallWebhookNodeConfiguration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: config.InsecureSkipVerify}

	if config.EnableProxy {
		if config.UseSystemProxyProperties {
			if proxyURL := systemProxy(); proxyURL != nil {
				transport.Proxy = http.ProxyURL(proxyURL)
			}
		} else if proxyURL := buildProxyURL(config); proxyURL != nil {
			if config.ProxyScheme == "socks5" {
				transport.DialContext = socks5DialContext(proxyURL)
			} else {
				transport.Proxy = http.ProxyURL(proxyURL)
			}
		}
	}
	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(config.ReadTimeoutMs) * time.Millisecond,
	}
}

func systemProxy() *url.URL {
	for _, env := range []string{"HTTP_PROXY", "http_proxy", "HTTPS_PROXY", "https_proxy"} {
		if proxyStr := os.Getenv(env); proxyStr != "" {
			if proxyURL, err := url.Parse(proxyStr); err == nil {
				return proxyURL
			}
		}
	}
	return nil
}

func buildProxyURL(config CallWebhookNodeConfiguration) *url.URL {
	if config.ProxyScheme == "" || config.ProxyHost == "" || config.ProxyPort == 0 {
		return nil
	}
	raw := fmt.Sprintf("%s://%s:%d", config.ProxyScheme, config.ProxyHost, config.ProxyPort)
	proxyURL, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	if config.ProxyUser != "" {
		proxyURL.User = url.UserPassword(config.ProxyUser, config.ProxyPassword)
	}
	return proxyURL
}

func socks5DialContext(proxyURL *url.URL) func(ctx context.Context, network, addr string) (net.Conn, error) {
	var auth *proxy.Auth
	if proxyURL.User != nil {
		password, _ := proxyURL.User.Password()
		auth = &proxy.Auth{User: proxyURL.User.Username(), Password: password}
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		dialer, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, proxy.Direct)
		if err != nil {
			return nil, err
		}
		if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
			return contextDialer.DialContext(ctx, network, addr)
		}
		return dialer.Dial(network, addr)
	}
}
