package load

import (
	"bytes"
	"fmt"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"edi835/config"
)

// Values holds variables available for output name template expansion.
type Values struct {
	Context string
	// source file name without extension and the extension itself
	Name string
	Ext  string
	// ISA13
	Control string
	// N102 of the first payer and payee identification
	Payer string
	Payee string
	// BPR16 as CCYY-MM-DD, interchange date when absent
	Date string
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	tmpl, err := template.New(string(name)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values.Context = string(name)

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
