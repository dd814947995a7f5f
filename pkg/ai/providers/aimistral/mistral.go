package aimistral

// OCRRequest represents a request to the Mistral OCR API
type OCRRequest struct {
	Model              string        `json:"model"`
	Document           DocumentInput `json:"document"`
	TableFormat        string        `json:"table_format,omitempty"`
	ExtractHeader      bool          `json:"extract_header,omitempty"`
	ExtractFooter      bool          `json:"extract_footer,omitempty"`
	IncludeImageBase64 bool          `json:"include_image_base64,omitempty"`
}

// DocumentInput represents different ways to provide a document
type DocumentInput struct {
	Type        string `json:"type"` // "document_url" or "image_url"
	DocumentURL string `json:"document_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// OCRResponse represents the response from Mistral OCR API
type OCRResponse struct {
	Pages     []PageData `json:"pages"`
	Model     string     `json:"model"`
	UsageInfo UsageInfo  `json:"usage_info"`
}

// PageData represents a single page in the OCR response
type PageData struct {
	Index      int         `json:"index"`
	Markdown   string      `json:"markdown"`
	Images     []ImageData `json:"images"`
	Header     *string     `json:"header"`
	Footer     *string     `json:"footer"`
	Dimensions *Dimensions `json:"dimensions"`
}

type Dimensions struct {
	DPI    int `json:"dpi"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ImageData represents an embedded figure located on the page
type ImageData struct {
	ID           string `json:"id"`
	TopLeftX     int    `json:"top_left_x"`
	TopLeftY     int    `json:"top_left_y"`
	BottomRightX int    `json:"bottom_right_x"`
	BottomRightY int    `json:"bottom_right_y"`
}

type UsageInfo struct {
	PagesProcessed int `json:"pages_processed"`
	DocSizeBytes   int `json:"doc_size_bytes"`
}
