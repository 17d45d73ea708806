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

package pubsub

import (
	"fmt"
	"strconv"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/ortuman/kestrel/pkg/module/xep0004"
)

const (
	titleFormKey           = "title"
	deliverPayloadsFormKey = "deliver_payloads"
	notifyDeleteFormKey    = "notify_delete"
	notifyRetractFormKey   = "notify_retract"
	maxItemsFormKey        = "max_items"
	publishModelFormKey    = "publish_model"
	accessModelFormKey     = "access_model"
)

// NodeOptions contains node configuration values.
type NodeOptions struct {
	Title           string
	PublishModel    string
	AccessModel     string
	MaxItems        int
	DeliverPayloads bool
	NotifyDelete    bool
	NotifyRetract   bool
}

func formToOptions(from NodeOptions, x stravaganza.Element) (NodeOptions, error) {
	fm, err := xep0004.NewFormFromElement(x)
	if err != nil {
		return from, err
	}
	if fm.Type != xep0004.Submit {
		return from, fmt.Errorf("pubsub: unexpected node config form type: %s", fm.Type)
	}
	fields := fm.Fields
	if v := fields.ValueForField(xep0004.FormType); len(v) > 0 && v != pubSubNodeConfigNamespace {
		return from, fmt.Errorf("pubsub: unexpected node config form namespace: %s", v)
	}
	opts := from

	if _, ok := fields.Field(pubSubFormKey(titleFormKey)); ok {
		opts.Title = fields.ValueForField(pubSubFormKey(titleFormKey))
	}
	if val, ok := fields.BoolForField(pubSubFormKey(deliverPayloadsFormKey)); ok {
		opts.DeliverPayloads = val
	}
	if val, ok := fields.BoolForField(pubSubFormKey(notifyDeleteFormKey)); ok {
		opts.NotifyDelete = val
	}
	if val, ok := fields.BoolForField(pubSubFormKey(notifyRetractFormKey)); ok {
		opts.NotifyRetract = val
	}
	if val := fields.ValueForField(pubSubFormKey(maxItemsFormKey)); len(val) > 0 {
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			return from, fmt.Errorf("pubsub: invalid max items value: %s", val)
		}
		opts.MaxItems = n
	}
	if val := fields.ValueForField(pubSubFormKey(publishModelFormKey)); len(val) > 0 {
		switch val {
		case PublishModelPublishers, PublishModelSubscribers, PublishModelOpen:
			opts.PublishModel = val
		default:
			return from, fmt.Errorf("pubsub: unrecognized publish model value: %s", val)
		}
	}
	if val := fields.ValueForField(pubSubFormKey(accessModelFormKey)); len(val) > 0 {
		switch val {
		case AccessModelOpen, AccessModelWhitelist:
			opts.AccessModel = val
		default:
			return from, fmt.Errorf("pubsub: unrecognized access model value: %s", val)
		}
	}
	return opts, nil
}

func optionsToForm(opts NodeOptions, formType string) *xep0004.DataForm {
	f := &xep0004.DataForm{
		Type: formType,
	}
	f.Fields = append(f.Fields, xep0004.Field{
		Var:    xep0004.FormType,
		Type:   xep0004.Hidden,
		Values: []string{pubSubNodeConfigNamespace},
	})

	// title
	field := xep0004.Field{
		Var:   pubSubFormKey(titleFormKey),
		Type:  xep0004.TextSingle,
		Label: "A friendly name for the node",
	}
	if len(opts.Title) > 0 {
		field.Values = []string{opts.Title}
	}
	f.Fields = append(f.Fields, field)

	f.Fields = append(f.Fields,
		xep0004.Field{
			Var:    pubSubFormKey(deliverPayloadsFormKey),
			Type:   xep0004.Boolean,
			Label:  "Whether to deliver payloads with event notifications",
			Values: []string{strconv.FormatBool(opts.DeliverPayloads)},
		},
		xep0004.Field{
			Var:    pubSubFormKey(notifyDeleteFormKey),
			Type:   xep0004.Boolean,
			Label:  "Whether to notify subscribers when the node is deleted",
			Values: []string{strconv.FormatBool(opts.NotifyDelete)},
		},
		xep0004.Field{
			Var:    pubSubFormKey(notifyRetractFormKey),
			Type:   xep0004.Boolean,
			Label:  "Whether to notify subscribers when items are removed from the node",
			Values: []string{strconv.FormatBool(opts.NotifyRetract)},
		},
		xep0004.Field{
			Var:    pubSubFormKey(maxItemsFormKey),
			Type:   xep0004.TextSingle,
			Label:  "The maximum number of items to keep",
			Values: []string{strconv.Itoa(opts.MaxItems)},
		},
		xep0004.Field{
			Var:    pubSubFormKey(publishModelFormKey),
			Type:   xep0004.ListSingle,
			Label:  "Specify the publisher model",
			Values: []string{opts.PublishModel},
			Options: []xep0004.Option{
				{Label: "Only publishers may publish", Value: PublishModelPublishers},
				{Label: "Subscribers may publish", Value: PublishModelSubscribers},
				{Label: "Anyone may publish", Value: PublishModelOpen},
			},
		},
		xep0004.Field{
			Var:    pubSubFormKey(accessModelFormKey),
			Type:   xep0004.ListSingle,
			Label:  "Specify the subscriber model",
			Values: []string{opts.AccessModel},
			Options: []xep0004.Option{
				{Label: "Open", Value: AccessModelOpen},
				{Label: "Whitelist", Value: AccessModelWhitelist},
			},
		},
	)
	return f
}

func pubSubFormKey(key string) string {
	return "pubsub#" + key
}
