package sources

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	production "isolar-cloud/internal/production/domain"
)

// XMLHeader is the header of the CSV produced by XMLToCSV.
var XMLHeader = []string{"Start Time", "ManageObject", "Total yield(kWh)"}

var (
	xmlContainerRe = regexp.MustCompile(`(?i)row|item|record`)
	xmlStartRe     = regexp.MustCompile(`start[_ ]?time|timestamp`)
	xmlDeviceRe    = regexp.MustCompile(`manageobject|device|inverter`)
	xmlYieldRe     = regexp.MustCompile(`total[_ ]?yield(\(kwh\))?|yield|eac|energy`)
)

// xmlFieldResolver picks the three record fields from flattened key paths.
var xmlFieldResolver = production.NewRuleResolver(
	production.HeaderRule{Role: production.RoleTimestamp, Match: xmlStartRe.MatchString},
	production.HeaderRule{Role: production.RoleDeviceID, Match: xmlDeviceRe.MatchString},
	production.HeaderRule{Role: production.RoleCumulativeYield, Match: xmlYieldRe.MatchString},
)

type xmlNode struct {
	name     string
	attrs    []xml.Attr
	children []*xmlNode
	text     strings.Builder
}

func (n *xmlNode) isObject() bool {
	return len(n.children) > 0 || len(n.attrs) > 0
}

func (n *xmlNode) isContainer() bool {
	return xmlContainerRe.MatchString(n.name)
}

// XMLToCSV flattens record elements of an XML export into CSV text with the
// columns of XMLHeader. Records missing any of the three fields are dropped.
func XMLToCSV(r io.Reader) ([]byte, error) {
	root, err := parseXMLTree(r)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(XMLHeader); err != nil {
		return nil, err
	}
	var writeErr error
	walkRecords(root, func(rec *xmlNode) {
		if writeErr != nil {
			return
		}
		var fields xmlFields
		fields.flatten(rec, "")
		keys := xmlFieldResolver.ResolveOrderedKeys(fields.keys)
		start, okStart := keys[production.RoleTimestamp]
		device, okDevice := keys[production.RoleDeviceID]
		yield, okYield := keys[production.RoleCumulativeYield]
		if !okStart || !okDevice || !okYield {
			return
		}
		writeErr = w.Write([]string{fields.values[start], fields.values[device], fields.values[yield]})
	})
	if writeErr != nil {
		return nil, writeErr
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewXMLSource converts r with XMLToCSV and streams the result as CSV.
func NewXMLSource(r io.Reader) (*CSVSource, error) {
	data, err := XMLToCSV(r)
	if err != nil {
		return nil, &production.StreamReadError{Err: err}
	}
	return NewCSVSource(bytes.NewReader(data)), nil
}

func parseXMLTree(r io.Reader) (*xmlNode, error) {
	dec := xml.NewDecoder(r)
	root := &xmlNode{}
	stack := []*xmlNode{root}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}
		top := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			node := &xmlNode{name: t.Name.Local}
			for _, attr := range t.Attr {
				if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
					continue
				}
				node.attrs = append(node.attrs, attr)
			}
			top.children = append(top.children, node)
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			top.text.Write(t)
		}
	}
	if len(stack) != 1 {
		return nil, fmt.Errorf("parse xml: %w", io.ErrUnexpectedEOF)
	}
	return root, nil
}

// walkRecords visits, in document order, every container element that has no
// container elements below it.
func walkRecords(n *xmlNode, visit func(*xmlNode)) {
	for _, child := range n.children {
		if !child.isObject() {
			continue
		}
		if child.isContainer() && !hasContainerChild(child) {
			visit(child)
			continue
		}
		walkRecords(child, visit)
	}
}

func hasContainerChild(n *xmlNode) bool {
	for _, child := range n.children {
		if child.isObject() && child.isContainer() {
			return true
		}
	}
	return false
}

// xmlFields holds the leaf values of one record under dotted key paths, with
// the keys in document order.
type xmlFields struct {
	keys   []string
	values map[string]string
}

// put keeps the first occurrence of a repeated path.
func (f *xmlFields) put(key, value string) {
	if f.values == nil {
		f.values = make(map[string]string)
	}
	if _, ok := f.values[key]; ok {
		return
	}
	f.keys = append(f.keys, key)
	f.values[key] = strings.TrimSpace(value)
}

// flatten walks n depth-first. Attributes are keys of their element and come
// before its children.
func (f *xmlFields) flatten(n *xmlNode, prefix string) {
	join := func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + "." + name
	}
	for _, attr := range n.attrs {
		f.put(join(attr.Name.Local), attr.Value)
	}
	if prefix != "" && len(n.attrs) > 0 && strings.TrimSpace(n.text.String()) != "" {
		f.put(join("#text"), n.text.String())
	}
	for _, child := range n.children {
		if child.isObject() {
			f.flatten(child, join(child.name))
			continue
		}
		f.put(join(child.name), child.text.String())
	}
}
