package specialist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const maxFormMemory = 32 << 20

// FlexNumber accepts a JSON number or a numeric string. null reads as absent.
type FlexNumber struct {
	raw     string
	present bool
}

func NumberOf(raw string) FlexNumber {
	return FlexNumber{raw: strings.TrimSpace(raw), present: true}
}

func (n *FlexNumber) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*n = FlexNumber{}
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*n = NumberOf(str)
	default:
		*n = NumberOf(s)
	}
	return nil
}

func (n FlexNumber) Present() bool { return n.present }

// Float parses the value as a finite float.
func (n FlexNumber) Float() (float64, bool) {
	f, err := strconv.ParseFloat(n.raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Int parses the value as an integer; 5 and 5.0 are accepted, 5.5 is not.
func (n FlexNumber) Int() (int, bool) {
	f, ok := n.Float()
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// FlexBool accepts a JSON bool or the strings "true" and "false".
type FlexBool struct {
	raw     string
	present bool
}

func BoolOf(raw string) FlexBool {
	return FlexBool{raw: strings.ToLower(strings.TrimSpace(raw)), present: true}
}

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	switch {
	case s == "null":
		*b = FlexBool{}
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*b = BoolOf(str)
	default:
		*b = BoolOf(s)
	}
	return nil
}

func (b FlexBool) Present() bool { return b.present }

func (b FlexBool) Bool() (bool, bool) {
	switch b.raw {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

type OfferingInput struct {
	Name        string `json:"name" validate:"max=255"`
	Description string `json:"description"`
}

// Payload is the request body of create, update and publish, whatever
// encoding the client used.
type Payload struct {
	Title              *string         `json:"title"`
	Slug               *string         `json:"slug"`
	Description        *string         `json:"description"`
	BasePrice          FlexNumber      `json:"base_price"`
	PlatformFee        FlexNumber      `json:"platform_fee"`
	DurationDays       FlexNumber      `json:"duration_days"`
	IsDraft            FlexBool        `json:"is_draft"`
	VerificationStatus *string         `json:"verification_status"`
	IsVerified         FlexBool        `json:"is_verified"`
	ServiceOfferings   []OfferingInput `json:"service_offerings"`
	MediaURLs          []string        `json:"media_urls"`
}

// DecodePayload resolves the body of r into a Payload. Form requests may carry
// the fields as a JSON string under "data"; when mergeForm is set the remaining
// form fields are kept underneath it, otherwise "data" alone is used.
func DecodePayload(r *http.Request, mergeForm bool) (*Payload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var form url.Values
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return nil, Validation("Invalid multipart form")
		}
		form = r.PostForm
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, Validation("Invalid form body")
		}
		form = r.PostForm
	default:
		return decodeJSON(r.Body)
	}

	data, hasData := form["data"]
	if !hasData || len(data) == 0 || strings.TrimSpace(data[0]) == "" {
		return payloadFromForm(form)
	}

	var p Payload
	if err := json.Unmarshal([]byte(data[0]), &p); err != nil {
		return nil, Validation(`Invalid JSON data in form field "data"`)
	}
	if !mergeForm {
		return &p, nil
	}
	base, err := payloadFromForm(form)
	if err != nil {
		return nil, err
	}
	base.overlay(&p)
	return base, nil
}

func decodeJSON(body io.Reader) (*Payload, error) {
	var p Payload
	if body == nil {
		return &p, nil
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, Validation("Unable to read request body")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, Validation("Invalid JSON body")
	}
	return &p, nil
}

func payloadFromForm(form url.Values) (*Payload, error) {
	var p Payload
	str := func(key string) *string {
		if v, ok := form[key]; ok && len(v) > 0 {
			s := v[0]
			return &s
		}
		return nil
	}

	p.Title = str("title")
	p.Slug = str("slug")
	p.Description = str("description")
	p.VerificationStatus = str("verification_status")
	if v := str("base_price"); v != nil {
		p.BasePrice = NumberOf(*v)
	}
	if v := str("platform_fee"); v != nil {
		p.PlatformFee = NumberOf(*v)
	}
	if v := str("duration_days"); v != nil {
		p.DurationDays = NumberOf(*v)
	}
	if v := str("is_draft"); v != nil {
		p.IsDraft = BoolOf(*v)
	}
	if v := str("is_verified"); v != nil {
		p.IsVerified = BoolOf(*v)
	}

	if v := str("service_offerings"); v != nil {
		offerings := []OfferingInput{}
		if strings.TrimSpace(*v) != "" {
			if err := json.Unmarshal([]byte(*v), &offerings); err != nil {
				return nil, Validation(fmt.Sprintf("Invalid JSON in form field %q", "service_offerings"))
			}
		}
		p.ServiceOfferings = offerings
	}

	for _, key := range []string{"media_urls", "media_urls[]"} {
		if urls, ok := form[key]; ok {
			p.MediaURLs = append(p.MediaURLs, urls...)
		}
	}
	return &p, nil
}

// overlay copies every field present in o over p.
func (p *Payload) overlay(o *Payload) {
	if o.Title != nil {
		p.Title = o.Title
	}
	if o.Slug != nil {
		p.Slug = o.Slug
	}
	if o.Description != nil {
		p.Description = o.Description
	}
	if o.BasePrice.Present() {
		p.BasePrice = o.BasePrice
	}
	if o.PlatformFee.Present() {
		p.PlatformFee = o.PlatformFee
	}
	if o.DurationDays.Present() {
		p.DurationDays = o.DurationDays
	}
	if o.IsDraft.Present() {
		p.IsDraft = o.IsDraft
	}
	if o.VerificationStatus != nil {
		p.VerificationStatus = o.VerificationStatus
	}
	if o.IsVerified.Present() {
		p.IsVerified = o.IsVerified
	}
	if o.ServiceOfferings != nil {
		p.ServiceOfferings = o.ServiceOfferings
	}
	if o.MediaURLs != nil {
		p.MediaURLs = o.MediaURLs
	}
}

// CreateInput is a validated create request.
type CreateInput struct {
	Title              string             `json:"title" validate:"required,max=255"`
	Slug               string             `json:"slug" validate:"max=255"`
	Description        *string            `json:"description"`
	BasePrice          float64            `json:"base_price" validate:"gte=0"`
	PlatformFee        *float64           `json:"platform_fee" validate:"omitempty,gte=0"`
	DurationDays       int                `json:"duration_days" validate:"gte=1"`
	IsDraft            bool               `json:"is_draft"`
	VerificationStatus VerificationStatus `json:"verification_status" validate:"oneof=pending approved rejected under-review"`
	IsVerified         bool               `json:"is_verified"`
	ServiceOfferings   []OfferingInput    `json:"service_offerings" validate:"dive"`
	MediaURLs          []string           `json:"media_urls" validate:"dive,max=500"`
}

// ToCreate checks the required fields and converts the loose payload types.
func (p *Payload) ToCreate() (*CreateInput, error) {
	if p.Title == nil || strings.TrimSpace(*p.Title) == "" {
		return nil, Validation("Title is required")
	}
	basePrice, ok := p.BasePrice.Float()
	if !p.BasePrice.Present() || !ok {
		return nil, Validation("Base price must be a valid number")
	}
	days, ok := p.DurationDays.Int()
	if !p.DurationDays.Present() || !ok {
		return nil, Validation("Duration days must be a valid integer")
	}

	in := &CreateInput{
		Title:              *p.Title,
		Description:        p.Description,
		BasePrice:          basePrice,
		DurationDays:       days,
		IsDraft:            true,
		VerificationStatus: VerificationPending,
		ServiceOfferings:   p.ServiceOfferings,
		MediaURLs:          firstN(p.MediaURLs, MaxMediaSlots),
	}
	if p.Slug != nil {
		in.Slug = *p.Slug
	}
	if p.PlatformFee.Present() {
		fee, ok := p.PlatformFee.Float()
		if !ok {
			return nil, Validation("Platform fee must be a valid number")
		}
		in.PlatformFee = &fee
	}
	if p.IsDraft.Present() {
		v, ok := p.IsDraft.Bool()
		if !ok {
			return nil, Validation("is_draft must be a boolean")
		}
		in.IsDraft = v
	}
	if p.IsVerified.Present() {
		v, ok := p.IsVerified.Bool()
		if !ok {
			return nil, Validation("is_verified must be a boolean")
		}
		in.IsVerified = v
	}
	if p.VerificationStatus != nil && *p.VerificationStatus != "" {
		in.VerificationStatus = VerificationStatus(*p.VerificationStatus)
	}
	return in, nil
}

// UpdateInput is a validated partial update. nil means "leave as is".
type UpdateInput struct {
	Title              *string             `json:"title" validate:"omitempty,max=255"`
	Description        *string             `json:"description"`
	BasePrice          *float64            `json:"base_price" validate:"omitempty,gte=0"`
	PlatformFee        *float64            `json:"platform_fee" validate:"omitempty,gte=0"`
	DurationDays       *int                `json:"duration_days" validate:"omitempty,gte=1"`
	IsDraft            *bool               `json:"is_draft"`
	VerificationStatus *VerificationStatus `json:"verification_status" validate:"omitempty,oneof=pending approved rejected under-review"`
	IsVerified         *bool               `json:"is_verified"`
	ServiceOfferings   []OfferingInput     `json:"service_offerings" validate:"dive"`
	ReplaceOfferings   bool                `json:"-"`
	MediaURLs          []string            `json:"media_urls" validate:"dive,max=500"`
}

func (p *Payload) ToUpdate() (*UpdateInput, error) {
	in := &UpdateInput{
		Description: p.Description,
		MediaURLs:   firstN(p.MediaURLs, MaxMediaSlots),
	}
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return nil, Validation("Title cannot be empty")
		}
		in.Title = p.Title
	}
	if p.BasePrice.Present() {
		v, ok := p.BasePrice.Float()
		if !ok {
			return nil, Validation("Base price must be a valid number")
		}
		in.BasePrice = &v
	}
	if p.PlatformFee.Present() {
		v, ok := p.PlatformFee.Float()
		if !ok {
			return nil, Validation("Platform fee must be a valid number")
		}
		in.PlatformFee = &v
	}
	if p.DurationDays.Present() {
		v, ok := p.DurationDays.Int()
		if !ok {
			return nil, Validation("Duration days must be a valid integer")
		}
		in.DurationDays = &v
	}
	if p.IsDraft.Present() {
		v, ok := p.IsDraft.Bool()
		if !ok {
			return nil, Validation("is_draft must be a boolean")
		}
		in.IsDraft = &v
	}
	if p.IsVerified.Present() {
		v, ok := p.IsVerified.Bool()
		if !ok {
			return nil, Validation("is_verified must be a boolean")
		}
		in.IsVerified = &v
	}
	if p.VerificationStatus != nil && *p.VerificationStatus != "" {
		vs := VerificationStatus(*p.VerificationStatus)
		in.VerificationStatus = &vs
	}
	if p.ServiceOfferings != nil {
		in.ServiceOfferings = p.ServiceOfferings
		in.ReplaceOfferings = true
	}
	return in, nil
}

// PublishState returns the explicit is_draft value, or nil for a toggle.
func (p *Payload) PublishState() (*bool, error) {
	if !p.IsDraft.Present() {
		return nil, nil
	}
	v, ok := p.IsDraft.Bool()
	if !ok {
		return nil, Validation("is_draft must be a boolean")
	}
	return &v, nil
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
