// components/contact/backends.go
//
// Delivery chain assembly.  contact.backends lists backend names in the
// order they run; the first failure aborts the rest and the user sees the
// error notification.

package contact

import (
	"errors"
	"fmt"

	"github.com/yanizio/contact/internal/component"
	"github.com/yanizio/contact/internal/form"
	"github.com/yanizio/contact/internal/form/deliver"
)

func buildBackend(deps component.Deps) (form.Backend, error) {
	cc := deps.Config.Contact
	chain := make(deliver.Chain, 0, len(cc.Backends))

	for _, name := range cc.Backends {
		switch name {
		case "simulated":
			chain = append(chain, deliver.Simulated{Delay: cc.SimulatedDelay})
		case "store":
			if deps.DB == nil {
				return nil, errors.New("store backend enabled without a database")
			}
			chain = append(chain, deliver.NewStore(deps.DB))
		case "email":
			if deps.Mail == nil {
				return nil, errors.New("email backend enabled without a mail queue")
			}
			chain = append(chain, deliver.Email{
				Queue:         deps.Mail,
				To:            cc.Mail.To,
				SubjectPrefix: cc.Mail.SubjectPrefix,
			})
		case "webhook":
			wh, err := deliver.NewWebhook(deliver.WebhookConfig{
				URL:              cc.Webhook.URL,
				Secret:           cc.Webhook.Secret,
				Headers:          cc.Webhook.Headers,
				Timeout:          cc.Webhook.Timeout,
				BreakerThreshold: cc.Webhook.BreakerThreshold,
				BreakerTimeout:   cc.Webhook.BreakerTimeout,
			})
			if err != nil {
				return nil, err
			}
			chain = append(chain, wh)
		default:
			return nil, fmt.Errorf("unknown backend %q", name)
		}
	}

	if len(chain) == 1 {
		return chain[0], nil
	}
	return chain, nil
}
