package useragent

import (
	"fmt"
	"strings"

	"github.com/ua-parser/uap-go/uaparser"
	"go.uber.org/zap"
)

// Classification holds the best-effort breakdown of a User-Agent string.
// Fields are empty when the corresponding part could not be recognized;
// classification never fails the surrounding request.
type Classification struct {
	Browser string // e.g. "Chrome 120.0.6099"
	OS      string // e.g. "Windows 10"
	Device  string // e.g. "iPhone"
}

// Classifier is the pluggable User-Agent classification collaborator.
type Classifier interface {
	Classify(userAgent string) Classification
}

// Parser classifies User-Agent strings using the uap-core regex set.
type Parser struct {
	parser *uaparser.Parser
	log    *zap.Logger
}

// New creates a parser backed by the regex definitions bundled with uap-go.
func New(log *zap.Logger) *Parser {
	return &Parser{
		parser: uaparser.NewFromSaved(),
		log:    log,
	}
}

// NewFromFile creates a parser from an external regexes.yaml, for deployments
// that ship a newer uap-core snapshot than the bundled one.
func NewFromFile(regexFilePath string, log *zap.Logger) (*Parser, error) {
	parser, err := uaparser.New(regexFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load User-Agent regexes from %s: %w", regexFilePath, err)
	}

	log.Info("User-Agent parser initialized", zap.String("regexes_file", regexFilePath))

	return &Parser{
		parser: parser,
		log:    log,
	}, nil
}

// Classify parses a User-Agent string into browser, OS and device families.
func (p *Parser) Classify(userAgent string) Classification {
	if strings.TrimSpace(userAgent) == "" {
		return Classification{}
	}

	client := p.parser.Parse(userAgent)

	c := Classification{
		Browser: withVersion(client.UserAgent.Family, client.UserAgent.ToVersionString()),
		OS:      withVersion(client.Os.Family, client.Os.ToVersionString()),
		Device:  clean(client.Device.Family),
	}

	p.log.Debug("classified User-Agent",
		zap.String("browser", c.Browser),
		zap.String("os", c.OS),
		zap.String("device", c.Device),
	)

	return c
}

// withVersion joins a family name with its version string, dropping the
// placeholder families uap-core emits for unrecognized agents.
func withVersion(family, version string) string {
	family = clean(family)
	if family == "" {
		return ""
	}
	if version == "" {
		return family
	}
	return family + " " + version
}

// clean maps uap-core's "Other" placeholder to an empty string.
func clean(family string) string {
	if family == "" || family == "Other" {
		return ""
	}
	return family
}
