// Copyright 2024 The jackal Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package xep0004

import (
	"fmt"
	"strconv"

	"github.com/jackal-xmpp/stravaganza/v2"
)

// FormNamespace specifies XEP-0004 namespace constant value.
const FormNamespace = "jabber:x:data"

// FormType names the hidden field carrying the form namespace.
const FormType = "FORM_TYPE"

// Form types.
const (
	Form   = "form"
	Submit = "submit"
	Cancel = "cancel"
	Result = "result"
)

// Field types.
const (
	Boolean     = "boolean"
	Fixed       = "fixed"
	Hidden      = "hidden"
	JidMulti    = "jid-multi"
	JidSingle   = "jid-single"
	ListMulti   = "list-multi"
	ListSingle  = "list-single"
	TextMulti   = "text-multi"
	TextPrivate = "text-private"
	TextSingle  = "text-single"
)

// Option represents an individual field option.
type Option struct {
	Label string
	Value string
}

// Field represents a data form field.
type Field struct {
	Var      string
	Type     string
	Label    string
	Required bool
	Values   []string
	Options  []Option
}

// Fields represent a set of form fields.
type Fields []Field

// DataForm represents a data form used to gather or report data.
type DataForm struct {
	Type         string
	Title        string
	Instructions string
	Fields       Fields
}

// NewFormFromElement parses a data form element.
func NewFormFromElement(elem stravaganza.Element) (*DataForm, error) {
	if n := elem.Name(); n != "x" {
		return nil, fmt.Errorf("xep0004: invalid form name: %s", n)
	}
	if ns := elem.Attribute(stravaganza.Namespace); ns != FormNamespace {
		return nil, fmt.Errorf("xep0004: invalid form namespace: %s", ns)
	}
	f := &DataForm{Type: elem.Attribute("type")}
	switch f.Type {
	case Form, Submit, Cancel, Result:
	default:
		return nil, fmt.Errorf("xep0004: invalid form type: %s", f.Type)
	}
	if title := elem.Child("title"); title != nil {
		f.Title = title.Text()
	}
	if inst := elem.Child("instructions"); inst != nil {
		f.Instructions = inst.Text()
	}
	for _, fieldElem := range elem.Children("field") {
		field, err := newFieldFromElement(fieldElem)
		if err != nil {
			return nil, err
		}
		f.Fields = append(f.Fields, field)
	}
	return f, nil
}

// Element returns data form XML representation.
func (f *DataForm) Element() stravaganza.Element {
	b := stravaganza.NewBuilder("x").
		WithAttribute(stravaganza.Namespace, FormNamespace).
		WithAttribute("type", f.Type)
	if len(f.Title) > 0 {
		b.WithChild(stravaganza.NewBuilder("title").WithText(f.Title).Build())
	}
	if len(f.Instructions) > 0 {
		b.WithChild(stravaganza.NewBuilder("instructions").WithText(f.Instructions).Build())
	}
	for _, field := range f.Fields {
		b.WithChild(field.Element())
	}
	return b.Build()
}

// Element returns form field XML representation.
func (f Field) Element() stravaganza.Element {
	b := stravaganza.NewBuilder("field")
	if len(f.Var) > 0 {
		b.WithAttribute("var", f.Var)
	}
	if len(f.Type) > 0 {
		b.WithAttribute("type", f.Type)
	}
	if len(f.Label) > 0 {
		b.WithAttribute("label", f.Label)
	}
	if f.Required {
		b.WithChild(stravaganza.NewBuilder("required").Build())
	}
	for _, v := range f.Values {
		b.WithChild(stravaganza.NewBuilder("value").WithText(v).Build())
	}
	for _, opt := range f.Options {
		ob := stravaganza.NewBuilder("option")
		if len(opt.Label) > 0 {
			ob.WithAttribute("label", opt.Label)
		}
		b.WithChild(ob.WithChild(stravaganza.NewBuilder("value").WithText(opt.Value).Build()).Build())
	}
	return b.Build()
}

// Field returns the field named v.
func (fs Fields) Field(v string) (Field, bool) {
	for _, f := range fs {
		if f.Var == v {
			return f, true
		}
	}
	return Field{}, false
}

// ValueForField returns the first value of field v.
func (fs Fields) ValueForField(v string) string {
	f, ok := fs.Field(v)
	if !ok || len(f.Values) == 0 {
		return ""
	}
	return f.Values[0]
}

// BoolForField parses field v as a boolean value. ok is false if the field is missing or malformed.
func (fs Fields) BoolForField(v string) (val bool, ok bool) {
	f, found := fs.Field(v)
	if !found || len(f.Values) == 0 {
		return false, false
	}
	b, err := strconv.ParseBool(f.Values[0])
	if err != nil {
		return false, false
	}
	return b, true
}

func newFieldFromElement(elem stravaganza.Element) (Field, error) {
	f := Field{
		Var:   elem.Attribute("var"),
		Type:  elem.Attribute("type"),
		Label: elem.Attribute("label"),
	}
	if !isValidFieldType(f.Type) {
		return Field{}, fmt.Errorf("xep0004: invalid field type: %s", f.Type)
	}
	f.Required = elem.Child("required") != nil

	for _, val := range elem.Children("value") {
		f.Values = append(f.Values, val.Text())
	}
	for _, opt := range elem.Children("option") {
		o := Option{Label: opt.Attribute("label")}
		if v := opt.Child("value"); v != nil {
			o.Value = v.Text()
		}
		f.Options = append(f.Options, o)
	}
	return f, nil
}

func isValidFieldType(typ string) bool {
	switch typ {
	case "", Boolean, Fixed, Hidden, JidMulti, JidSingle, ListMulti,
		ListSingle, TextMulti, TextPrivate, TextSingle:
		return true
	}
	return false
}
