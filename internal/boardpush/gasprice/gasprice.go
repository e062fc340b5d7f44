package gasprice

import "math/big"

// Escalation defaults, in wei.
var (
	DefaultBaseWei = big.NewInt(1_300_000)
	DefaultMaxWei  = big.NewInt(3_000_000)
	DefaultStepWei = big.NewInt(300_000)
)

// Policy bounds the escalation: price lives in [BaseWei, MaxWei] and climbs
// by StepWei per timeout.
type Policy struct {
	BaseWei *big.Int
	MaxWei  *big.Int
	StepWei *big.Int
}

// Controller is the per-worker gas price state machine. The price climbs on
// submission timeouts and returns to base only on a confirmed success, so an
// update that keeps timing out across cycles keeps its escalated price
// instead of restarting cold. Owned by a single worker loop; not safe for
// concurrent use.
type Controller struct {
	policy  Policy
	current *big.Int
}

func New(p Policy) *Controller {
	if p.BaseWei == nil || p.BaseWei.Sign() <= 0 {
		p.BaseWei = DefaultBaseWei
	}
	if p.MaxWei == nil || p.MaxWei.Cmp(p.BaseWei) < 0 {
		p.MaxWei = DefaultMaxWei
	}
	if p.StepWei == nil || p.StepWei.Sign() <= 0 {
		p.StepWei = DefaultStepWei
	}
	return &Controller{
		policy:  p,
		current: new(big.Int).Set(p.BaseWei),
	}
}

// Current returns the price to use for the next submission.
func (c *Controller) Current() *big.Int {
	return new(big.Int).Set(c.current)
}

// Escalate bumps the price by one step, clamped to the policy max. It
// returns the new price and whether the controller was already saturated
// (held at max, nothing left to climb).
func (c *Controller) Escalate() (*big.Int, bool) {
	if c.current.Cmp(c.policy.MaxWei) >= 0 {
		return c.Current(), true
	}
	c.current.Add(c.current, c.policy.StepWei)
	if c.current.Cmp(c.policy.MaxWei) > 0 {
		c.current.Set(c.policy.MaxWei)
	}
	return c.Current(), false
}

// Reset returns the price to base. Called exactly on confirmed success.
func (c *Controller) Reset() {
	c.current.Set(c.policy.BaseWei)
}
