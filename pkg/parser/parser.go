package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"jmdict/pkg/config"
	errs "jmdict/pkg/errors"
	"jmdict/pkg/logger"
	"jmdict/pkg/storage"
)

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// Parser reads a dated raw document and extracts its entry list
type Parser struct {
	storage  *storage.Manager
	document config.DocumentConfig
	logger   logger.Logger
}

// New creates a Parser
func New(store *storage.Manager, document config.DocumentConfig, log logger.Logger) *Parser {
	return &Parser{
		storage:  store,
		document: document,
		logger:   logger.OrDefault(log).WithField("component", "parser"),
	}
}

// Parse reads the raw document for dateKey, sanitizes and parses it, and
// returns the entry elements found under the root element.
func (p *Parser) Parse(ctx context.Context, dateKey string) (EntryList, error) {
	path := p.storage.RawPath(dateKey)

	p.logger.InfoWithFields("reading file", map[string]interface{}{
		"path": path,
	})
	data, err := p.storage.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeRead, "parse", err).WithPath(path)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.logger.Info("parsing file")
	entries, err := p.ParseDocument(Sanitize(string(data)))
	if err != nil {
		var typed *errs.Error
		if errors.As(err, &typed) {
			typed.WithPath(path)
		}
		return nil, err
	}

	p.logger.InfoWithFields("file parsed", map[string]interface{}{
		"entries": len(entries),
	})
	return entries, nil
}

// ParseDocument parses an already sanitized document
func (p *Parser) ParseDocument(doc string) (EntryList, error) {
	root, err := xmlquery.ParseWithOptions(strings.NewReader(doc), xmlquery.ParserOptions{
		Decoder: &xmlquery.DecoderOptions{Strict: true},
	})
	if err != nil {
		return nil, errs.New(errs.ErrorTypeParse, "parse", err)
	}

	rootPath := "/" + p.document.RootElement
	if node, err := xmlquery.Query(root, rootPath); err != nil {
		return nil, errs.New(errs.ErrorTypeStructure, "parse", fmt.Errorf("invalid root element %q: %w", p.document.RootElement, err))
	} else if node == nil {
		return nil, errs.New(errs.ErrorTypeStructure, "parse", fmt.Errorf("root element <%s> not found", p.document.RootElement))
	}

	nodes, err := xmlquery.QueryAll(root, rootPath+"/"+p.document.EntryElement)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeStructure, "parse", fmt.Errorf("invalid entry element %q: %w", p.document.EntryElement, err))
	}
	if len(nodes) == 0 {
		return nil, errs.New(errs.ErrorTypeStructure, "parse", fmt.Errorf("no <%s> elements under <%s>", p.document.EntryElement, p.document.RootElement))
	}

	entries := make(EntryList, len(nodes))
	for i, node := range nodes {
		entries[i] = Convert(node)
	}
	return entries, nil
}

// Convert turns an element node into its generic value. Text-only elements
// become Text, everything else an *Element. Whitespace-only character data
// is dropped unless it came from a CDATA section.
func Convert(node *xmlquery.Node) Value {
	elem := &Element{}
	for _, a := range node.Attr {
		elem.Attrs = append(elem.Attrs, Attr{Name: attrName(a), Value: a.Value})
	}

	var text strings.Builder
	cdata := false
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case xmlquery.ElementNode:
			elem.add(elementName(child), Convert(child))
		case xmlquery.TextNode:
			text.WriteString(child.Data)
		case xmlquery.CharDataNode:
			text.WriteString(child.Data)
			cdata = true
		}
	}

	if s := text.String(); cdata || strings.TrimSpace(s) != "" {
		elem.Text = s
	}

	if len(elem.Attrs) == 0 && len(elem.Fields) == 0 {
		return Text(elem.Text)
	}
	return elem
}

func elementName(node *xmlquery.Node) string {
	if node.Prefix != "" {
		return node.Prefix + ":" + node.Data
	}
	return node.Data
}

func attrName(a xmlquery.Attr) string {
	switch a.Name.Space {
	case "":
		return a.Name.Local
	case xmlNamespace:
		return "xml:" + a.Name.Local
	default:
		return a.Name.Space + ":" + a.Name.Local
	}
}
