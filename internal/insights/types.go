// Package insights defines core types shared across subsystems.
package insights

import (
	"net/http"
	"time"
)

// ResourceCategory identifies one planned sub-resource of a storefront.
type ResourceCategory string

// Resource categories, in plan order.
const (
	ResourceCatalog       ResourceCategory = "catalog"
	ResourceHomepage      ResourceCategory = "homepage"
	ResourcePrivacyPolicy ResourceCategory = "privacy_policy"
	ResourceRefundPolicy  ResourceCategory = "refund_policy"
	ResourceFAQ           ResourceCategory = "faq"
	ResourceContact       ResourceCategory = "contact"
	ResourceAbout         ResourceCategory = "about"
)

// StoreRef is a validated, normalized storefront root. It is created once by
// the resolver and never mutated afterwards.
type StoreRef struct {
	RootURL   string `json:"root_url"`
	BrandHint string `json:"brand_hint,omitempty"`
}

// ResourceSpec names one sub-resource the planner wants fetched.
type ResourceSpec struct {
	Category ResourceCategory
	URL      string
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL         string
	Headers     http.Header
	UseHeadless bool
}

// FetchResult is the outcome of a single fetch. HTTP-level errors (4xx/5xx)
// are valid results; Err is set only when no response was obtainable.
type FetchResult struct {
	URL          string
	StatusCode   int
	Body         []byte
	ContentType  string
	Duration     time.Duration
	UsedHeadless bool
	Err          error
}

// Product describes one catalog listing. Hero products share this shape.
type Product struct {
	ID             int64    `json:"id,omitempty"`
	Title          string   `json:"title"`
	Handle         string   `json:"handle,omitempty"`
	Price          string   `json:"price,omitempty"`
	CompareAtPrice string   `json:"compare_at_price,omitempty"`
	Available      bool     `json:"available"`
	ImageURLs      []string `json:"image_urls,omitempty"`
	URL            string   `json:"url,omitempty"`
	Variants       []string `json:"variants,omitempty"`
}

// PolicyKind distinguishes the published policy documents we look for.
type PolicyKind string

// Supported policy kinds.
const (
	PolicyPrivacy PolicyKind = "privacy"
	PolicyRefund  PolicyKind = "refund"
)

// PolicyText holds the extracted body of one policy page.
type PolicyText struct {
	Kind      PolicyKind `json:"kind"`
	Text      string     `json:"text"`
	SourceURL string     `json:"source_url"`
}

// FAQEntry is one question/answer pair in document order.
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ContactDetails holds deduplicated, sorted contact tokens.
type ContactDetails struct {
	Emails []string `json:"emails,omitempty"`
	Phones []string `json:"phones,omitempty"`
}

// SocialPlatform enumerates the platforms we recognize.
type SocialPlatform string

// Known social platforms.
const (
	PlatformInstagram SocialPlatform = "instagram"
	PlatformFacebook  SocialPlatform = "facebook"
	PlatformTikTok    SocialPlatform = "tiktok"
	PlatformTwitter   SocialPlatform = "twitter"
	PlatformYouTube   SocialPlatform = "youtube"
	PlatformPinterest SocialPlatform = "pinterest"
	PlatformLinkedIn  SocialPlatform = "linkedin"
)

// LinkCategory enumerates the navigational link buckets.
type LinkCategory string

// Known link categories.
const (
	LinkOrderTracking LinkCategory = "order_tracking"
	LinkBlogs         LinkCategory = "blogs"
	LinkContactUs     LinkCategory = "contact_us"
	LinkAboutUs       LinkCategory = "about_us"
	LinkCareers       LinkCategory = "careers"
	LinkOther         LinkCategory = "other"
)

// BrandContext carries best-effort free text about the brand.
type BrandContext struct {
	Name      string `json:"name,omitempty"`
	AboutText string `json:"about_text,omitempty"`
}

// PartialFailure records one resource-level extraction failure.
type PartialFailure struct {
	Resource ResourceCategory `json:"resource"`
	Reason   string           `json:"reason"`
}

// Partial failure reasons shared between fetch and parse stages.
const (
	ReasonTimeout          = "timeout"
	ReasonFetchFailed      = "fetch_failed"
	ReasonMalformedCatalog = "malformed_catalog"
	ReasonPolicyNotFound   = "policy_not_found"
)

// InsightsResult is the aggregate produced by one pipeline run. It is owned
// exclusively by the run that built it and frozen once returned.
type InsightsResult struct {
	Store           StoreRef                  `json:"store"`
	Products        []Product                 `json:"products"`
	HeroProducts    []Product                 `json:"hero_products"`
	Policies        []PolicyText              `json:"policies"`
	FAQs            []FAQEntry                `json:"faqs"`
	Brand           BrandContext              `json:"brand"`
	SocialLinks     map[SocialPlatform]string `json:"social_links"`
	Contact         ContactDetails            `json:"contact_details"`
	ImportantLinks  map[LinkCategory]string   `json:"important_links"`
	PartialFailures []PartialFailure          `json:"partial_failures"`
	FetchedAt       time.Time                 `json:"fetched_at"`
}
