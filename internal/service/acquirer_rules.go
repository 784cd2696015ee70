package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/checkout_gateway/internal/models"
)

const (
	approvedCode    = "00"
	approvedMessage = "Approved or completed successfully"
	defaultApproval = "ABCDEFG1234"
)

var defaultInterchangeRate = decimal.RequireFromString("0.10")

// RuleTableProcessor is an in-process acquirer: a PAN listed in rules gets
// the canned rejection, every other PAN is approved.
type RuleTableProcessor struct {
	network  models.AcquiringNetwork
	rules    map[string]RejectedCapture
	approval ApprovedCapture
}

func NewRuleTableProcessor(network models.AcquiringNetwork, rules map[string]RejectedCapture, approval ApprovedCapture) *RuleTableProcessor {
	approval.Network = network
	copied := make(map[string]RejectedCapture, len(rules))
	for pan, rule := range rules {
		rule.Network = network
		copied[pan] = rule
	}
	return &RuleTableProcessor{network: network, rules: copied, approval: approval}
}

func (p *RuleTableProcessor) Network() models.AcquiringNetwork {
	return p.network
}

func (p *RuleTableProcessor) Capture(ctx context.Context, msg CaptureMessage) (FinancialMessageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rule, ok := p.rules[msg.PAN.Reveal()]; ok {
		return rule, nil
	}
	return p.approval, nil
}

// DefaultApproval is the approval template of the built-in acquirers.
func DefaultApproval() ApprovedCapture {
	return ApprovedCapture{
		CaptureResult: CaptureResult{
			ResponseCode:    approvedCode,
			ResponseMessage: approvedMessage,
			InterchangeRate: defaultInterchangeRate,
		},
		ApprovalCode: defaultApproval,
	}
}

// DefaultAcquirerRules returns the rejection tables of the built-in acquirers.
func DefaultAcquirerRules() map[models.AcquiringNetwork]map[string]RejectedCapture {
	return map[models.AcquiringNetwork]map[string]RejectedCapture{
		models.NetworkCKO: {
			"4444444444444444": {
				CaptureResult: CaptureResult{ResponseCode: "19", ResponseMessage: "Re-enter transaction", InterchangeRate: defaultInterchangeRate},
				IsRetryable:   true,
			},
		},
		models.NetworkCBK: {
			"5555555555555555": {
				CaptureResult: CaptureResult{ResponseCode: "43", ResponseMessage: "Stolen card, pick up", InterchangeRate: defaultInterchangeRate},
				IsRetryable:   false,
			},
		},
	}
}

// DefaultAcquiringProcessors builds one rule table processor per network.
func DefaultAcquiringProcessors() map[models.AcquiringNetwork]AcquiringProcessor {
	processors := make(map[models.AcquiringNetwork]AcquiringProcessor)
	for network, rules := range DefaultAcquirerRules() {
		processors[network] = NewRuleTableProcessor(network, rules, DefaultApproval())
	}
	return processors
}
