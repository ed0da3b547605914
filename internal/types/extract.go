package types

// DefaultMaxTiles bounds the vision calls made for one request when the caller does not say.
const DefaultMaxTiles = 12

// MaxTilesLimit is the largest tile budget a caller may request.
const MaxTilesLimit = 48

// ExtractRequest is the input of the extraction entry point.
type ExtractRequest struct {
	StoreID    StoreID  `json:"store_id" validate:"required"`
	Mode       Mode     `json:"mode" validate:"omitempty,oneof=all ingredients"`
	MaxTiles   int      `json:"max_tiles" validate:"gte=0,lte=48"`
	SourceURLs []string `json:"source_urls" validate:"required,min=1,max=40,dive,required,url"`
}

// Validate checks field-level constraints. Store existence is checked by the caller.
func (r *ExtractRequest) Validate() error {
	return validate.Struct(r)
}

// WithDefaults fills unset optional fields.
func (r ExtractRequest) WithDefaults() ExtractRequest {
	if r.Mode == "" {
		r.Mode = ModeAll
	}
	if r.MaxTiles == 0 {
		r.MaxTiles = DefaultMaxTiles
	}
	return r
}

// ExtractMeta reports how much work one extraction did.
type ExtractMeta struct {
	Pages     int   `json:"pages"`
	Tiles     int   `json:"tiles"`
	ElapsedMs int64 `json:"elapsed_ms"`
}

// ExtractResponse is returned for every request that passed validation,
// including requests that produced no items.
type ExtractResponse struct {
	RunID    string      `json:"run_id,omitempty"`
	StoreID  StoreID     `json:"store_id"`
	Mode     Mode        `json:"mode"`
	Items    []FlyerItem `json:"items"`
	Count    int         `json:"count"`
	Warnings []string    `json:"warnings"`
	Meta     ExtractMeta `json:"meta"`
}
