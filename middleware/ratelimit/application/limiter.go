package application

import (
	"context"

	"admin-gateway/middleware/ratelimit/domain"

	"github.com/mailgun/holster/v4/clock"
	"github.com/pkg/errors"
)

// DenyListMax é o orçamento apertado aplicado a clientes na deny-list.
const DenyListMax = 10

// Limiter aplica o orçamento por categoria e por cliente.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Limiter struct {
	Store      domain.WindowStore
	Classifier Classifier
	Policies   map[domain.Category]domain.Policy
	// AllowList admite sem contar; DenyList aperta o orçamento para DenyListMax.
	// Ambas são indexadas pelo IP do cliente.
	AllowList map[string]struct{}
	DenyList  map[string]struct{}
}

func NewLimiter(store domain.WindowStore) *Limiter {
	return &Limiter{
		Store:      store,
		Classifier: DefaultClassifier(),
		Policies:   domain.DefaultPolicies(),
	}
}

// Check classifica e admite a requisição.
func (l *Limiter) Check(ctx context.Context, req domain.Request) (domain.Decision, error) {
	cat, bypass := l.Classifier.Classify(req)
	if bypass {
		return domain.Decision{Allowed: true, Bypassed: true}, nil
	}
	if _, ok := l.AllowList[req.ClientIP]; ok {
		return domain.Decision{Allowed: true, Bypassed: true, Category: cat}, nil
	}

	policy, err := l.policy(cat)
	if err != nil {
		return domain.Decision{Category: cat}, err
	}
	if _, ok := l.DenyList[req.ClientIP]; ok && policy.Max > DenyListMax {
		policy.Max = DenyListMax
	}
	return l.admit(ctx, cat, policy, req.ClientKey())
}

// Admit conta uma requisição na janela (categoria, cliente) e decide.
// A requisição N+1 dentro da janela é negada.
func (l *Limiter) Admit(ctx context.Context, cat domain.Category, clientKey string) (domain.Decision, error) {
	policy, err := l.policy(cat)
	if err != nil {
		return domain.Decision{Category: cat}, err
	}
	return l.admit(ctx, cat, policy, clientKey)
}

// Release desfaz a contagem de uma decisão admitida (política SkipSuccessful).
// Só afeta a janela em que a decisão foi contada.
func (l *Limiter) Release(ctx context.Context, dec domain.Decision) error {
	if !dec.Allowed || dec.Bypassed || dec.Key == "" {
		return nil
	}
	return errors.Wrap(l.Store.Decrement(ctx, dec.Key, dec.ResetAt), "while releasing rate limit slot")
}

// Policy devolve a política da categoria, se houver.
func (l *Limiter) Policy(cat domain.Category) (domain.Policy, bool) {
	p, ok := l.Policies[cat]
	return p, ok
}

func (l *Limiter) policy(cat domain.Category) (domain.Policy, error) {
	if l.Store == nil {
		return domain.Policy{}, errors.New("rate limiter has no window store")
	}
	p, ok := l.Policies[cat]
	if !ok || p.Max <= 0 || p.Window <= 0 {
		return domain.Policy{}, errors.Errorf("no rate limit policy for category %q", cat)
	}
	return p, nil
}

func (l *Limiter) admit(ctx context.Context, cat domain.Category, policy domain.Policy, clientKey string) (domain.Decision, error) {
	key := domain.WindowKey(cat, clientKey)
	count, resetAt, err := l.Store.Increment(ctx, key, policy.Window)
	if err != nil {
		// fail closed: quem chama nega a admissão
		return domain.Decision{Category: cat, Key: key}, errors.Wrapf(err, "while counting %q", key)
	}

	dec := domain.Decision{
		Allowed:   count <= policy.Max,
		Category:  cat,
		Key:       key,
		Limit:     policy.Max,
		Remaining: policy.Max - count,
		ResetAt:   resetAt,
	}
	if dec.Remaining < 0 {
		dec.Remaining = 0
	}
	if !dec.Allowed {
		dec.RetryAfter = resetAt.Sub(clock.Now())
		if dec.RetryAfter <= 0 {
			dec.RetryAfter = policy.Window
		}
		dec.Code = cat.Code()
		dec.Message = policy.Message
	}
	return dec, nil
}
