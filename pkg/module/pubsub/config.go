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

// Publish models.
const (
	PublishModelPublishers  = "publishers"
	PublishModelSubscribers = "subscribers"
	PublishModelOpen        = "open"
)

// Access models.
const (
	AccessModelOpen      = "open"
	AccessModelWhitelist = "whitelist"
)

// Config contains PubSub service configuration.
type Config struct {
	// Host is the virtual domain owned by the service.
	Host string `fig:"host" default:"pubsub.localhost"`

	// MaxItems is the default number of items kept per node.
	MaxItems int `fig:"max_items" default:"10"`

	// AccessCreate names the rule list allowing node creation.
	AccessCreate string `fig:"access_create" default:"all"`

	// PublishModel is the default node publish model.
	PublishModel string `fig:"publish_model" default:"publishers"`

	// AccessModel is the default node access model.
	AccessModel string `fig:"access_model" default:"open"`
}

func (c Config) defaultNodeOptions() NodeOptions {
	return NodeOptions{
		PublishModel:    c.PublishModel,
		AccessModel:     c.AccessModel,
		MaxItems:        c.MaxItems,
		DeliverPayloads: true,
		NotifyDelete:    true,
		NotifyRetract:   true,
	}
}

// FeatureList returns PubSub service disco features.
func (c Config) FeatureList() []string {
	return []string{
		pubSubNS("access-" + c.AccessModel),
		pubSubNS("create-nodes"),
		pubSubNS("create-and-configure"),
		pubSubNS("config-node"),
		pubSubNS("delete-nodes"),
		pubSubNS("instant-nodes"),
		pubSubNS("modify-affiliations"),
		pubSubNS("publish"),
		pubSubNS("retract-items"),
		pubSubNS("retrieve-items"),
		pubSubNS("subscribe"),
	}
}
