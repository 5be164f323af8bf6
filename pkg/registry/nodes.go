package registry

import (
	"github.com/betoarts/masszap/pkg/nodes/condition"
	"github.com/betoarts/masszap/pkg/nodes/createcampaign"
	"github.com/betoarts/masszap/pkg/nodes/end"
	"github.com/betoarts/masszap/pkg/nodes/sendmedia"
	"github.com/betoarts/masszap/pkg/nodes/sendmessage"
	"github.com/betoarts/masszap/pkg/nodes/start"
	"github.com/betoarts/masszap/pkg/nodes/wait"
	"github.com/betoarts/masszap/pkg/nodes/webhook"
)

// RegisterDefaultNodes registers all built-in node factories with the
// registry.
func (r *Registry) RegisterDefaultNodes() {
	r.RegisterNode(start.NewFactory())
	r.RegisterNode(sendmessage.NewFactory())
	r.RegisterNode(sendmedia.NewFactory())
	r.RegisterNode(wait.NewFactory())
	r.RegisterNode(condition.NewFactory())
	r.RegisterNode(webhook.NewFactory())
	r.RegisterNode(createcampaign.NewFactory())
	r.RegisterNode(end.NewFactory())
}
