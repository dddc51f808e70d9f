package slots

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/seu-repo/voxbank/internal/observability/telemetry"
)

// Slot names produced by the dialogue backend
const (
	SlotAmount       = "amount"
	SlotCounterparty = "counterparty"
)

// demoAmounts maps spoken amounts to the sandbox amounts the demo backend
// accepts. Anything unlisted passes through unchanged.
var demoAmounts = map[float64]float64{
	5000:  1000,
	10000: 2000,
	15000: 3000,
	20000: 5000,
}

// demoHandles maps spoken names to sandbox UPI handles. Unknown names get a
// paytm handle derived from the name.
var demoHandles = map[string]string{
	"rajesh": "rajesh@paytm",
	"alice":  "alice@phonepe",
	"john":   "john@upi",
	"priya":  "priya@paytm",
	"bob":    "bob@phonepe",
	"sarah":  "sarah@upi",
}

type binding struct {
	context string
	slot    string
	apply   func(value string)
}

// Reconciler routes recognized slots into registered form fields. A field
// binds to a (context, slot) pair; context "" binds regardless of context.
type Reconciler struct {
	log *zap.Logger

	mu       sync.Mutex
	nextID   int
	bindings map[int]binding
}

// NewReconciler creates an empty reconciler
func NewReconciler(log *zap.Logger) *Reconciler {
	return &Reconciler{
		log:      log,
		bindings: make(map[int]binding),
	}
}

// Register binds a form field to a slot. The returned function removes the
// binding; removing twice is harmless.
func (r *Reconciler) Register(context, slot string, apply func(value string)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.bindings[id] = binding{context: context, slot: slot, apply: apply}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.bindings, id)
	}
}

// Reconcile normalizes the recognized slots and applies each to every
// matching binding. Slots nobody is bound to are dropped silently.
func (r *Reconciler) Reconcile(context string, slots map[string]interface{}) {
	if len(slots) == 0 {
		return
	}

	for slot, raw := range slots {
		value, ok := normalize(slot, raw)
		if !ok {
			r.log.Debug("Skipping unusable slot value",
				zap.String("slot", slot),
				zap.Any("value", raw),
			)
			continue
		}

		for _, b := range r.snapshot() {
			if b.slot != slot {
				continue
			}
			if b.context != "" && b.context != context {
				continue
			}
			b.apply(value)
			telemetry.SlotsReconciledTotal.Inc()
		}
	}
}

func (r *Reconciler) snapshot() []binding {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]binding, 0, len(r.bindings))
	for _, b := range r.bindings {
		out = append(out, b)
	}
	return out
}

func normalize(slot string, raw interface{}) (string, bool) {
	switch slot {
	case SlotAmount:
		amount, ok := toFloat(raw)
		if !ok {
			return "", false
		}
		if mapped, found := demoAmounts[amount]; found {
			amount = mapped
		}
		return formatAmount(amount), true

	case SlotCounterparty:
		name, ok := raw.(string)
		if !ok || strings.TrimSpace(name) == "" {
			return "", false
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if strings.Contains(name, "@") {
			return name, true
		}
		if handle, found := demoHandles[name]; found {
			return handle, true
		}
		return name + "@paytm", true

	default:
		return fmt.Sprintf("%v", raw), true
	}
}

func toFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
