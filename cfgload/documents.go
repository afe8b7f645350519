package cfgload

import (
	"github.com/loaderkit/go-dataload/resource"
)

// Environment is the environment configuration document. It supplies the
// location of the indirection (proxy) endpoint used for external fetches, and
// the location of the overrides document itself. All fields are optional;
// absent values disable the corresponding feature.
type Environment struct {
	Proxy     ProxyConfig `json:"proxy"`
	Overrides string      `json:"overrides"`
}

// ProxyConfig locates the indirection endpoint that relays external fetches.
type ProxyConfig struct {
	BaseURL string `json:"baseUrl"`
	Path    string `json:"path"`
}

// Configured reports whether the proxy endpoint is usable.
func (p ProxyConfig) Configured() bool {
	return p.BaseURL != ""
}

// Overrides maps local resource locators to external URL strings. Keys may be
// written with or without a leading separator. Values that are not non-empty
// strings are ignored.
type Overrides map[string]any

// Resolve returns the external URL overriding the given locator, if any.
// Both the bare and the leading-separator spelling of the key are consulted;
// the first string-typed match wins. Resolve never performs I/O and never
// fails; an absent or malformed entry yields ("", false).
func (o Overrides) Resolve(loc resource.Locator) (string, bool) {
	if len(o) == 0 {
		return "", false
	}
	for _, key := range []string{string(loc), "/" + string(loc)} {
		v, ok := o[key]
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}
