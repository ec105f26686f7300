// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// accessorgen writes typed accessors for the remote relation settings a
// relation handler declares.
package main

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"strings"
	"text/template"
	"unicode"
)

func main() {
	if len(os.Args) < 5 {
		fmt.Println("Usage: go run generate/accessorgen <output-file> <package-name> <receiver-type> <field1> [<field2> ...]")
		fmt.Println("Example: go run generate/accessorgen accessors_generated.go datanode Provides host port ssh-key")
		os.Exit(1)
	}

	params := FileParams{
		Package:  os.Args[2],
		Receiver: os.Args[3],
	}
	for _, field := range os.Args[4:] {
		accessor, err := newAccessor(field)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		params.Accessors = append(params.Accessors, accessor)
	}

	if err := generateFile(os.Args[1], params); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// FileParams describes a generated accessors file.
type FileParams struct {
	Package   string
	Receiver  string
	Accessors []Accessor
}

// ReceiverVar is the name of the receiver variable in generated methods.
func (p FileParams) ReceiverVar() string {
	return strings.ToLower(p.Receiver[:1])
}

// Accessor describes one declared remote field.
type Accessor struct {
	// Field is the relation setting key, e.g. "webhdfs-port".
	Field string

	// Method is the accessor name, e.g. "WebHDFSPort".
	Method string
}

// initialisms are field words rendered in upper case.
var initialisms = map[string]string{
	"id":      "ID",
	"ip":      "IP",
	"ssh":     "SSH",
	"url":     "URL",
	"hdfs":    "HDFS",
	"webhdfs": "WebHDFS",
}

func newAccessor(field string) (Accessor, error) {
	method, err := goName(field)
	if err != nil {
		return Accessor{}, err
	}
	return Accessor{Field: field, Method: method}, nil
}

// goName converts a relation setting key into an exported Go identifier.
func goName(field string) (string, error) {
	words := strings.FieldsFunc(field, func(r rune) bool {
		return r == '-' || r == '_' || r == '.'
	})
	if len(words) == 0 {
		return "", fmt.Errorf("invalid field name %q", field)
	}
	var name strings.Builder
	for _, word := range words {
		for _, r := range word {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				return "", fmt.Errorf("invalid field name %q", field)
			}
		}
		if upper, ok := initialisms[strings.ToLower(word)]; ok {
			name.WriteString(upper)
			continue
		}
		name.WriteString(strings.ToUpper(word[:1]) + word[1:])
	}
	result := name.String()
	if !unicode.IsLetter(rune(result[0])) {
		return "", fmt.Errorf("invalid field name %q", field)
	}
	return result, nil
}

var fileTemplate = template.Must(template.New("accessors").Parse(`// Code generated by accessorgen. DO NOT EDIT.

package {{.Package}}

// Remote relation settings with generated accessors.
const (
{{- range .Accessors}}
	Field{{.Method}} = "{{.Field}}"
{{- end}}
)

// DeclaredFields lists the remote relation settings with generated
// accessors, in declaration order.
var DeclaredFields = []string{
{{- range .Accessors}}
	Field{{.Method}},
{{- end}}
}
{{range .Accessors}}
// {{.Method}} returns the remote "{{.Field}}" setting, or "" when it is not set.
func ({{$.ReceiverVar}} *{{$.Receiver}}) {{.Method}}() string {
	return {{$.ReceiverVar}}.remoteField(Field{{.Method}})
}
{{end}}`))

func render(params FileParams) ([]byte, error) {
	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, params); err != nil {
		return nil, err
	}
	return format.Source(buf.Bytes())
}

func generateFile(outputFile string, params FileParams) error {
	source, err := render(params)
	if err != nil {
		return fmt.Errorf("rendering %s: %w", outputFile, err)
	}
	return os.WriteFile(outputFile, source, 0644)
}
