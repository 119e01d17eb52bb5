package client

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Project statuses.
const (
	StatusReceived   = "Received"
	StatusAssigned   = "Assigned"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusArchived   = "Archived"
	StatusOnHold     = "On Hold"
	StatusQuoted     = "Quoted"
	StatusDelivered  = "Delivered"
)

type Project struct {
	ID             string    `json:"id"`
	ProjectCode    string    `json:"projectId"`
	RequestNumber  string    `json:"requestNumber"`
	Status         string    `json:"status"`
	Created        time.Time `json:"created"`
	TimeLine       time.Time `json:"timeLine"`
	TranslatorID   *string   `json:"translatorId"`
	Tenant         string    `json:"tenant"`
	Department     string    `json:"department"`
	SourceLanguage string    `json:"sourceLanguage"`
	TargetLanguage string    `json:"targetLanguage"`
	IsTranslation  bool      `json:"isTranslation"`
	IsEditing      bool      `json:"isEditing"`
	IsCertificate  bool      `json:"isCertificate"`
	IsBittext      bool      `json:"isBittext"`
	IsGlossary     bool      `json:"isGlossary"`
	IsStyleSheet   bool      `json:"isStyleSheet"`
	IsMemory       bool      `json:"isMemory"`
	IsUrgent       bool      `json:"isUrgent"`
	WordCount      int       `json:"wordCount"`
	Billed         float64   `json:"billed"`
	Comments       string    `json:"comments"`
	AdditionalInfo string    `json:"additionalInfo"`
	CreatedBy      string    `json:"createdBy"`
}

// CanDelete reports whether the server would accept a delete of p.
func (p *Project) CanDelete() bool {
	return p.Status == StatusReceived
}

type CreateProjectRequest struct {
	RequestNumber  string     `json:"requestNumber,omitempty"`
	Created        *time.Time `json:"created,omitempty"`
	TimeLine       *time.Time `json:"timeLine,omitempty"`
	Tenant         string     `json:"tenant,omitempty"`
	Department     string     `json:"department,omitempty"`
	SourceLanguage string     `json:"sourceLanguage"`
	TargetLanguage string     `json:"targetLanguage"`
	Status         string     `json:"status,omitempty"`
	IsTranslation  bool       `json:"isTranslation"`
	IsEditing      bool       `json:"isEditing"`
	IsCertificate  bool       `json:"isCertificate"`
	IsBittext      bool       `json:"isBittext"`
	IsGlossary     bool       `json:"isGlossary"`
	IsStyleSheet   bool       `json:"isStyleSheet"`
	IsMemory       bool       `json:"isMemory"`
	IsUrgent       bool       `json:"isUrgent"`
	AdditionalInfo string     `json:"additionalInfo,omitempty"`
}

type Tenant struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Code        string   `json:"code"`
	Departments []string `json:"departments"`
	Image       string   `json:"image"`
	Export      bool     `json:"export"`
	Translators string   `json:"translators"`
}

type User struct {
	UID        string     `json:"uid"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	PhotoURL   string     `json:"photoUrl"`
	Role       string     `json:"role"`
	Tenant     string     `json:"tenant"`
	Department string     `json:"department"`
	IsActive   bool       `json:"isActive"`
	LastLogin  *time.Time `json:"lastLogin"`
}

type TranslatorRef struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

// PageSize is a positive page length or "All".
type PageSize struct {
	Limit int
	All   bool
}

// PageAll asks for every matching project in one page.
var PageAll = PageSize{All: true}

// ParsePageSize reads "All" or a positive number.
func ParsePageSize(s string) (PageSize, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return PageAll, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return PageSize{}, fmt.Errorf("page size must be a positive number or All, got %q", s)
	}
	return PageSize{Limit: n}, nil
}

func (p PageSize) MarshalJSON() ([]byte, error) {
	if p.All {
		return []byte(`"All"`), nil
	}
	if p.Limit <= 0 {
		return []byte("null"), nil
	}
	return json.Marshal(p.Limit)
}

func (p PageSize) String() string {
	if p.All {
		return "All"
	}
	return strconv.Itoa(p.Limit)
}

// Filter is the listing selection sent with getProjects.
type Filter struct {
	StatusCategory string `json:"status,omitempty"`
	Month          int    `json:"monthSelected,omitempty"`
	Year           int    `json:"yearSelected,omitempty"`
	RequestNumber  string `json:"requestdb,omitempty"`
	Tenant         string `json:"tenant,omitempty"`
}

type GetProjectsRequest struct {
	Filter
	LastDoc    string   `json:"lastDoc,omitempty"`
	NewQuery   bool     `json:"newQuery"`
	Pagination PageSize `json:"pagination"`

	// ViewState generation the request was built from.
	generation uint64
}

type GetProjectsResponse struct {
	Projects    []Project       `json:"projects"`
	LastDoc     string          `json:"lastDoc"`
	Count       int64           `json:"count"`
	Translators []TranslatorRef `json:"translators"`
}
