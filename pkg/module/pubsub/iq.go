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
	"context"
	"strconv"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/ortuman/kestrel/pkg/module/xep0004"
	xmpputil "github.com/ortuman/kestrel/pkg/util/xmpp"
)

const serviceName = "Publish-Subscribe"

func (s *Service) processIQ(ctx context.Context, iq *stravaganza.IQ) error {
	if iq.IsResult() || iq.IsError() {
		return nil
	}
	if len(iq.ToJID().Node()) > 0 {
		return ErrFeatureNotImplemented
	}
	switch {
	case iq.IsGet() && iq.ChildNamespace("query", discoInfoNamespace) != nil:
		return s.processDiscoInfo(ctx, iq, iq.ChildNamespace("query", discoInfoNamespace))

	case iq.IsGet() && iq.ChildNamespace("query", discoItemsNamespace) != nil:
		return s.processDiscoItems(ctx, iq, iq.ChildNamespace("query", discoItemsNamespace))

	case iq.ChildNamespace("pubsub", pubSubNamespace) != nil:
		return s.processRequest(ctx, iq, iq.ChildNamespace("pubsub", pubSubNamespace))

	case iq.ChildNamespace("pubsub", pubSubOwnerNS()) != nil:
		return s.processOwnerRequest(ctx, iq, iq.ChildNamespace("pubsub", pubSubOwnerNS()))
	}
	return ErrFeatureNotImplemented
}

func (s *Service) processRequest(ctx context.Context, iq *stravaganza.IQ, pubSubElem stravaganza.Element) error {
	if iq.IsGet() {
		if items := pubSubElem.Child("items"); items != nil {
			return s.getItems(ctx, iq, items)
		}
		return ErrFeatureNotImplemented
	}
	switch {
	case pubSubElem.Child("create") != nil:
		return s.createNode(ctx, iq, pubSubElem.Child("create"), pubSubElem.Child("configure"))
	case pubSubElem.Child("subscribe") != nil:
		return s.subscribe(ctx, iq, pubSubElem.Child("subscribe"))
	case pubSubElem.Child("unsubscribe") != nil:
		return s.unsubscribe(ctx, iq, pubSubElem.Child("unsubscribe"))
	case pubSubElem.Child("publish") != nil:
		return s.publish(ctx, iq, pubSubElem.Child("publish"))
	case pubSubElem.Child("retract") != nil:
		return s.retract(ctx, iq, pubSubElem.Child("retract"))
	}
	return ErrFeatureNotImplemented
}

func (s *Service) processOwnerRequest(ctx context.Context, iq *stravaganza.IQ, pubSubElem stravaganza.Element) error {
	switch {
	case pubSubElem.Child("configure") != nil && iq.IsGet():
		return s.getNodeConfig(ctx, iq, pubSubElem.Child("configure"))
	case pubSubElem.Child("configure") != nil && iq.IsSet():
		return s.setNodeConfig(ctx, iq, pubSubElem.Child("configure"))
	case pubSubElem.Child("default") != nil && iq.IsGet():
		return s.getDefaultConfig(ctx, iq)
	case pubSubElem.Child("delete") != nil && iq.IsSet():
		return s.deleteNode(ctx, iq, pubSubElem.Child("delete"))
	case pubSubElem.Child("purge") != nil && iq.IsSet():
		return s.purgeNode(ctx, iq, pubSubElem.Child("purge"))
	case pubSubElem.Child("affiliations") != nil && iq.IsGet():
		return s.getAffiliations(ctx, iq, pubSubElem.Child("affiliations"))
	case pubSubElem.Child("affiliations") != nil && iq.IsSet():
		return s.setAffiliations(ctx, iq, pubSubElem.Child("affiliations"))
	}
	return ErrFeatureNotImplemented
}

func (s *Service) createNode(ctx context.Context, iq *stravaganza.IQ, create, configure stravaganza.Element) error {
	var opts *NodeOptions
	if configure != nil {
		if x := configure.ChildNamespace("x", xep0004.FormNamespace); x != nil {
			o, err := formToOptions(s.cfg.defaultNodeOptions(), x)
			if err != nil {
				return ErrBadRequest
			}
			opts = &o
		}
	}
	nodeID, err := s.CreateNode(ctx, iq.FromJID(), create.Attribute("node"), opts)
	if err != nil {
		return err
	}
	createElem := stravaganza.NewBuilder("create").WithAttribute("node", nodeID).Build()
	s.route(ctx, xmpputil.MakeResultIQ(iq, pubSubElement(pubSubNamespace, createElem)))
	return nil
}

func (s *Service) subscribe(ctx context.Context, iq *stravaganza.IQ, sub stravaganza.Element) error {
	subJID, err := jid.NewWithString(sub.Attribute("jid"), false)
	if err != nil {
		return ErrInvalidJID
	}
	nodeID := sub.Attribute("node")
	subID, err := s.Subscribe(ctx, iq.FromJID(), subJID, nodeID)
	if err != nil {
		return err
	}
	s.route(ctx, xmpputil.MakeResultIQ(iq, pubSubElement(
		pubSubNamespace,
		subscriptionElement(nodeID, subJID.String(), subID, "subscribed"),
	)))
	return nil
}

func (s *Service) unsubscribe(ctx context.Context, iq *stravaganza.IQ, unsub stravaganza.Element) error {
	subJID, err := jid.NewWithString(unsub.Attribute("jid"), false)
	if err != nil {
		return ErrInvalidJID
	}
	if err := s.Unsubscribe(ctx, iq.FromJID(), subJID, unsub.Attribute("node")); err != nil {
		return err
	}
	s.route(ctx, xmpputil.MakeResultIQ(iq, nil))
	return nil
}

func (s *Service) publish(ctx context.Context, iq *stravaganza.IQ, pub stravaganza.Element) error {
	nodeID := pub.Attribute("node")

	var itemID string
	var payload stravaganza.Element
	if item := pub.Child("item"); item != nil {
		itemID = item.Attribute("id")
		if children := item.AllChildren(); len(children) > 0 {
			payload = children[0]
		}
	}
	itemID, err := s.Publish(ctx, iq.FromJID(), nodeID, itemID, payload)
	if err != nil {
		return err
	}
	pubElem := stravaganza.NewBuilder("publish").
		WithAttribute("node", nodeID).
		WithChild(stravaganza.NewBuilder("item").WithAttribute("id", itemID).Build()).
		Build()
	s.route(ctx, xmpputil.MakeResultIQ(iq, pubSubElement(pubSubNamespace, pubElem)))
	return nil
}

func (s *Service) retract(ctx context.Context, iq *stravaganza.IQ, retract stravaganza.Element) error {
	item := retract.Child("item")
	if item == nil {
		return ErrBadRequest
	}
	notify, _ := strconv.ParseBool(retract.Attribute("notify"))
	if err := s.Retract(ctx, iq.FromJID(), retract.Attribute("node"), item.Attribute("id"), notify); err != nil {
		return err
	}
	s.route(ctx, xmpputil.MakeResultIQ(iq, nil))
	return nil
}

func (s *Service) getItems(ctx context.Context, iq *stravaganza.IQ, items stravaganza.Element) error {
	nodeID := items.Attribute("node")

	var max int
	if v := items.Attribute("max_items"); len(v) > 0 {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return ErrBadRequest
		}
		max = n
	}
	its, err := s.Items(ctx, iq.FromJID(), nodeID, max)
	if err != nil {
		return err
	}
	s.route(ctx, xmpputil.MakeResultIQ(iq, pubSubElement(pubSubNamespace, itemsElement(nodeID, its, true))))
	return nil
}

func (s *Service) getNodeConfig(ctx context.Context, iq *stravaganza.IQ, configure stravaganza.Element) error {
	nodeID := configure.Attribute("node")
	opts, err := s.NodeConfig(ctx, iq.FromJID(), nodeID)
	if err != nil {
		return err
	}
	cfgElem := stravaganza.NewBuilder("configure").
		WithAttribute("node", nodeID).
		WithChild(optionsToForm(opts, xep0004.Form).Element()).
		Build()
	s.route(ctx, xmpputil.MakeResultIQ(iq, pubSubElement(pubSubOwnerNS(), cfgElem)))
	return nil
}

func (s *Service) setNodeConfig(ctx context.Context, iq *stravaganza.IQ, configure stravaganza.Element) error {
	x := configure.ChildNamespace("x", xep0004.FormNamespace)
	if x == nil {
		return ErrBadRequest
	}
	if x.Attribute("type") == xep0004.Cancel {
		s.route(ctx, xmpputil.MakeResultIQ(iq, nil))
		return nil
	}
	nodeID := configure.Attribute("node")
	current, err := s.NodeConfig(ctx, iq.FromJID(), nodeID)
	if err != nil {
		return err
	}
	opts, err := formToOptions(current, x)
	if err != nil {
		return ErrBadRequest
	}
	if err := s.Configure(ctx, iq.FromJID(), nodeID, opts); err != nil {
		return err
	}
	s.route(ctx, xmpputil.MakeResultIQ(iq, nil))
	return nil
}

func (s *Service) getDefaultConfig(ctx context.Context, iq *stravaganza.IQ) error {
	defElem := stravaganza.NewBuilder("default").
		WithChild(optionsToForm(s.cfg.defaultNodeOptions(), xep0004.Form).Element()).
		Build()
	s.route(ctx, xmpputil.MakeResultIQ(iq, pubSubElement(pubSubOwnerNS(), defElem)))
	return nil
}

func (s *Service) deleteNode(ctx context.Context, iq *stravaganza.IQ, del stravaganza.Element) error {
	if err := s.DeleteNode(ctx, iq.FromJID(), del.Attribute("node")); err != nil {
		return err
	}
	s.route(ctx, xmpputil.MakeResultIQ(iq, nil))
	return nil
}

func (s *Service) purgeNode(ctx context.Context, iq *stravaganza.IQ, purge stravaganza.Element) error {
	if err := s.Purge(ctx, iq.FromJID(), purge.Attribute("node")); err != nil {
		return err
	}
	s.route(ctx, xmpputil.MakeResultIQ(iq, nil))
	return nil
}

func (s *Service) getAffiliations(ctx context.Context, iq *stravaganza.IQ, affs stravaganza.Element) error {
	nodeID := affs.Attribute("node")
	items, err := s.Affiliations(ctx, iq.FromJID(), nodeID)
	if err != nil {
		return err
	}
	b := stravaganza.NewBuilder("affiliations").WithAttribute("node", nodeID)
	for _, it := range items {
		b.WithChild(
			stravaganza.NewBuilder("affiliation").
				WithAttribute("jid", it.JID).
				WithAttribute("affiliation", it.Affiliation.String()).
				Build(),
		)
	}
	s.route(ctx, xmpputil.MakeResultIQ(iq, pubSubElement(pubSubOwnerNS(), b.Build())))
	return nil
}

func (s *Service) setAffiliations(ctx context.Context, iq *stravaganza.IQ, affs stravaganza.Element) error {
	nodeID := affs.Attribute("node")
	for _, affElem := range affs.Children("affiliation") {
		target, err := jid.NewWithString(affElem.Attribute("jid"), false)
		if err != nil {
			return ErrBadRequest
		}
		aff, ok := ParseAffiliation(affElem.Attribute("affiliation"))
		if !ok {
			return ErrBadRequest
		}
		if err := s.SetAffiliation(ctx, iq.FromJID(), nodeID, target, aff); err != nil {
			return err
		}
	}
	s.route(ctx, xmpputil.MakeResultIQ(iq, nil))
	return nil
}

func (s *Service) processDiscoInfo(ctx context.Context, iq *stravaganza.IQ, query stravaganza.Element) error {
	qb := stravaganza.NewBuilder("query").WithAttribute(stravaganza.Namespace, discoInfoNamespace)

	nodeID := query.Attribute("node")
	if len(nodeID) == 0 {
		qb.WithChild(identityElement("service", serviceName))
		for _, f := range append([]string{discoInfoNamespace, discoItemsNamespace, pubSubNamespace}, s.cfg.FeatureList()...) {
			qb.WithChild(stravaganza.NewBuilder("feature").WithAttribute("var", f).Build())
		}
	} else {
		n, err := s.lockNode(nodeID)
		if err != nil {
			return err
		}
		title := n.opts.Title
		n.mu.Unlock()

		qb.WithAttribute("node", nodeID)
		qb.WithChild(identityElement("leaf", title))
		qb.WithChild(stravaganza.NewBuilder("feature").WithAttribute("var", pubSubNamespace).Build())
	}
	s.route(ctx, xmpputil.MakeResultIQ(iq, qb.Build()))
	return nil
}

func (s *Service) processDiscoItems(ctx context.Context, iq *stravaganza.IQ, query stravaganza.Element) error {
	if len(query.Attribute("node")) > 0 {
		// leaf nodes hold no child nodes
		if s.node(query.Attribute("node")) == nil {
			return ErrNodeNotFound
		}
		s.route(ctx, xmpputil.MakeResultIQ(iq, stravaganza.NewBuilder("query").
			WithAttribute(stravaganza.Namespace, discoItemsNamespace).
			WithAttribute("node", query.Attribute("node")).
			Build()))
		return nil
	}
	qb := stravaganza.NewBuilder("query").WithAttribute(stravaganza.Namespace, discoItemsNamespace)
	for _, nodeID := range s.NodeIDs() {
		qb.WithChild(
			stravaganza.NewBuilder("item").
				WithAttribute("jid", s.cfg.Host).
				WithAttribute("node", nodeID).
				Build(),
		)
	}
	s.route(ctx, xmpputil.MakeResultIQ(iq, qb.Build()))
	return nil
}

func identityElement(typ, name string) stravaganza.Element {
	b := stravaganza.NewBuilder("identity").
		WithAttribute("category", "pubsub").
		WithAttribute("type", typ)
	if len(name) > 0 {
		b.WithAttribute("name", name)
	}
	return b.Build()
}
