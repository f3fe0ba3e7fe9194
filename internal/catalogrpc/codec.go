// Package catalogrpc exposes the catalog service over gRPC. Messages are plain
// Go structs carried by a JSON codec registered under the "json" content
// subtype, so no generated code is involved.
package catalogrpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"

	"ProductCatalog/internal/product"
)

const codecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type GetRequest struct {
	ID                 string `json:"id"`
	IncludeUnavailable bool   `json:"include_unavailable,omitempty"`
}

type ListRequest struct {
	IncludeUnavailable bool `json:"include_unavailable,omitempty"`
}

type CreateRequest struct {
	Product product.Input `json:"product"`
}

type DeleteRequest struct {
	ID string `json:"id"`
}

type Empty struct{}

// ProductReply carries the availability flag that the public JSON form hides.
type ProductReply struct {
	product.Product
	Available bool `json:"available"`
}

func reply(p product.Product) *ProductReply {
	return &ProductReply{Product: p, Available: p.Available}
}

func (r *ProductReply) product() product.Product {
	p := r.Product
	p.Available = r.Available
	return p
}
