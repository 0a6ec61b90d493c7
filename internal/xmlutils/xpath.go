package xmlutils

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"gopkg.in/xmlpath.v2"
)

// parseTree parses content into an xmlpath node tree, reading it as UTF-8 whatever
// encoding it declares.
func parseTree(content []byte) (*xmlpath.Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.CharsetReader = identityCharset
	root, err := xmlpath.ParseDecoder(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}
	return root, nil
}

// HasPath reports whether the XPath expression selects at least one node of content.
func HasPath(content []byte, xpath string) (bool, error) {
	path, err := xmlpath.Compile(xpath)
	if err != nil {
		return false, fmt.Errorf("failed to compile XPath: %w", err)
	}
	root, err := parseTree(content)
	if err != nil {
		return false, err
	}
	return path.Exists(root), nil
}

// Values extracts the string values selected by an XPath expression.
func Values(content []byte, xpath string) ([]string, error) {
	path, err := xmlpath.Compile(xpath)
	if err != nil {
		return nil, fmt.Errorf("failed to compile XPath: %w", err)
	}
	root, err := parseTree(content)
	if err != nil {
		return nil, err
	}

	var values []string
	iter := path.Iter(root)
	for iter.Next() {
		values = append(values, iter.Node().String())
	}
	return values, nil
}
