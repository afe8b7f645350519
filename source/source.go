// Package source provides the fetch sources that the data loader pulls
// resource payloads from: local static hosting, and external URLs reached
// through an indirection (proxy) endpoint. Payloads are decoded according to
// the requested resource kind.
package source

import (
	"context"

	logging "github.com/ipfs/go-log/v2"
	"github.com/loaderkit/go-dataload/resource"
)

var log = logging.Logger("source")

// Source supplies the payload of a single resource. Each Source is bound to
// one resource; the loader assembles a source list per request and tries each
// in order.
type Source interface {
	// Fetch retrieves and decodes the resource payload as the given kind.
	Fetch(context.Context, resource.Kind) (any, error)
	// Provenance identifies which tier the source belongs to.
	Provenance() resource.Provenance
	// String returns a description of the source.
	String() string
}
