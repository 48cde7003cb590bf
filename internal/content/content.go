// Package content holds the portfolio's static copy: hero roles, section
// entries and link lists. It is read from YAML, with a default embedded in
// the binary.
package content

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"os"

	"github.com/Amila1P/portfolio/internal/toggle"
	"github.com/Amila1P/portfolio/internal/typing"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Section ids in page order. Each one is an anchor and a reveal region.
const (
	SectionHome         = "home"
	SectionAbout        = "about"
	SectionDetails      = "details"
	SectionExpertise    = "expertise"
	SectionProjects     = "projects"
	SectionCertificates = "certificates"
	SectionPhotography  = "photography"
	SectionArticles     = "articles"
	SectionContact      = "contact"
)

// RevealSections are the sections that animate in when scrolled into view.
var RevealSections = []string{
	SectionAbout,
	SectionDetails,
	SectionExpertise,
	SectionProjects,
	SectionCertificates,
	SectionPhotography,
	SectionArticles,
	SectionContact,
}

// Toggle names.
const (
	ToggleCertificates = "certificates"
	ToggleMenu         = "menu"
)

// ErrInvalid wraps content validation failures.
var ErrInvalid = errors.New("content: invalid")

type Owner struct {
	Name     string `yaml:"name"`
	Brand    string `yaml:"brand"`
	Logo     string `yaml:"logo"`
	Tagline  string `yaml:"tagline"`
	Image    string `yaml:"image"`
	Portrait string `yaml:"portrait"`
	Email    string `yaml:"email"`
	GitHub   string `yaml:"github"`
}

type Link struct {
	Label string `yaml:"label"`
	Href  string `yaml:"href"`
}

type Highlight struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type About struct {
	Paragraphs []string    `yaml:"paragraphs"`
	Highlights []Highlight `yaml:"highlights"`

	// HTML is Paragraphs rendered from markdown.
	HTML []template.HTML `yaml:"-"`
}

type Detail struct {
	Title       string `yaml:"title"`
	Value       string `yaml:"value"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
}

type SkillGroup struct {
	Category string   `yaml:"category"`
	Items    []string `yaml:"items"`
}

type Project struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
	Link        string   `yaml:"link"`
}

type Certificate struct {
	Title  string `yaml:"title"`
	Issuer string `yaml:"issuer"`
	Date   string `yaml:"date"`
	Image  string `yaml:"image"`
	Link   string `yaml:"link"`
}

type Certificates struct {
	Shown  []Certificate `yaml:"shown"`
	Hidden []Certificate `yaml:"hidden"`
	Labels toggle.Labels `yaml:"labels"`
}

type Platform struct {
	Name        string `yaml:"name"`
	Icon        string `yaml:"icon"`
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
}

type Article struct {
	Title   string   `yaml:"title"`
	Excerpt string   `yaml:"excerpt"`
	Date    string   `yaml:"date"`
	Tags    []string `yaml:"tags"`
	Link    string   `yaml:"link"`
}

// Site is the whole page's content.
type Site struct {
	Owner        Owner        `yaml:"owner"`
	Roles        []string     `yaml:"roles"`
	Nav          []Link       `yaml:"nav"`
	NavOther     []Link       `yaml:"nav_other"`
	About        About        `yaml:"about"`
	Details      []Detail     `yaml:"details"`
	Skills       []SkillGroup `yaml:"skills"`
	Projects     []Project    `yaml:"projects"`
	Certificates Certificates `yaml:"certificates"`
	Platforms    []Platform   `yaml:"platforms"`
	Articles     []Article    `yaml:"articles"`
	FooterLinks  []Link       `yaml:"footer_links"`
	Socials      []Link       `yaml:"socials"`

	roles typing.Roles
}

// TypingRoles returns the validated hero roles.
func (s *Site) TypingRoles() typing.Roles { return s.roles }

// Default returns the embedded content.
func Default() (*Site, error) {
	return Parse(defaultYAML)
}

// Load reads content from path, or the embedded default when path is empty.
func Load(path string) (*Site, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading content %s: %w", path, err)
	}
	site, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return site, nil
}

// Parse decodes, validates and renders content.
func Parse(data []byte) (*Site, error) {
	var site Site
	if err := yaml.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("%w: decoding yaml: %v", ErrInvalid, err)
	}

	roles, err := typing.NewRoles(site.Roles...)
	if err != nil {
		return nil, fmt.Errorf("%w: roles: %w", ErrInvalid, err)
	}
	site.roles = roles

	if site.Owner.Name == "" {
		return nil, fmt.Errorf("%w: owner.name is required", ErrInvalid)
	}

	site.About.HTML, err = renderMarkdown(site.About.Paragraphs)
	if err != nil {
		return nil, fmt.Errorf("%w: about: %v", ErrInvalid, err)
	}
	return &site, nil
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

func renderMarkdown(paragraphs []string) ([]template.HTML, error) {
	out := make([]template.HTML, 0, len(paragraphs))
	for _, p := range paragraphs {
		var buf bytes.Buffer
		if err := md.Convert([]byte(p), &buf); err != nil {
			return nil, err
		}
		// Authored content, not visitor input.
		out = append(out, template.HTML(buf.String()))
	}
	return out, nil
}
