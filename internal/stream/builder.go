package stream

import (
	"fmt"
	"sync"

	"github.com/tonimelisma/tdstream-go/internal/tdapi"
)

// Builder turns service calls into Requests stamped with the session's
// account, source app id and a request id from a per-session counter. It
// performs no I/O.
type Builder struct {
	account string
	source  string
	subKey  string

	mu     sync.Mutex
	nextID int64
}

// NewBuilder derives the request template from a user principal.
func NewBuilder(p *tdapi.UserPrincipal) (*Builder, error) {
	acct, err := p.PrimaryAccount()
	if err != nil {
		return nil, err
	}

	return &Builder{
		account: acct.AccountID,
		source:  p.StreamerInfo.AppID,
		subKey:  p.SubscriptionKey(),
		nextID:  1,
	}, nil
}

// NewRequest builds a request. Keys and fields are normalized to single
// comma-joined strings; the request id is the next value of the session
// counter, starting at 1.
func (b *Builder) NewRequest(service Service, command Command, keys []string, fields []Field) Request {
	return Request{
		Service:   service,
		RequestID: b.takeID(),
		Command:   command,
		Account:   b.account,
		Source:    b.source,
		Parameters: Parameters{
			Keys:   joinList(keys),
			Fields: joinFields(fields),
		},
	}
}

// Unsubscribe builds an UNSUBS request for service. With no keys every
// symbol of the service is dropped.
func (b *Builder) Unsubscribe(service Service, keys ...string) Request {
	return b.NewRequest(service, CommandUnsubscribe, keys, nil)
}

// QualityOfService sets the push rate for the whole session.
func (b *Builder) QualityOfService(level QOSLevel) Request {
	req := b.NewRequest(ServiceAdmin, CommandQOS, nil, nil)
	req.Parameters.Extra = map[string]string{"qoslevel": string(level)}

	return req
}

// LevelOneQuotes subscribes to equity quotes.
func (b *Builder) LevelOneQuotes(symbols []string, fields ...Field) Request {
	return b.NewRequest(ServiceQuote, CommandSubscribe, symbols, fields)
}

// LevelOneOptions subscribes to option quotes, keyed like "MSFT_043021C120".
func (b *Builder) LevelOneOptions(symbols []string, fields ...Field) Request {
	return b.NewRequest(ServiceOption, CommandSubscribe, symbols, fields)
}

// LevelOneFutures subscribes to futures quotes, keyed like "/ES".
func (b *Builder) LevelOneFutures(symbols []string, fields ...Field) Request {
	return b.NewRequest(ServiceLevelOneFutures, CommandSubscribe, symbols, fields)
}

// LevelOneFuturesOptions subscribes to futures option quotes.
func (b *Builder) LevelOneFuturesOptions(symbols []string, fields ...Field) Request {
	return b.NewRequest(ServiceLevelOneFuturesOptions, CommandSubscribe, symbols, fields)
}

// LevelOneForex subscribes to currency pairs, keyed like "EUR/USD".
func (b *Builder) LevelOneForex(symbols []string, fields ...Field) Request {
	return b.NewRequest(ServiceLevelOneForex, CommandSubscribe, symbols, fields)
}

// NewsHeadline subscribes to headlines for symbols.
func (b *Builder) NewsHeadline(symbols []string, fields ...Field) Request {
	return b.NewRequest(ServiceNewsHeadline, CommandSubscribe, symbols, fields)
}

// Chart subscribes to one-minute bars on a CHART_* service.
func (b *Builder) Chart(service Service, symbols []string, fields ...Field) (Request, error) {
	switch service {
	case ServiceChartEquity, ServiceChartFutures, ServiceChartOptions:
	default:
		return Request{}, fmt.Errorf("stream: %s is not a chart service", service)
	}

	return b.NewRequest(service, CommandSubscribe, symbols, fields), nil
}

// Timesale subscribes to time and sales on a TIMESALE_* service.
func (b *Builder) Timesale(service Service, symbols []string, fields ...Field) (Request, error) {
	switch service {
	case ServiceTimesaleEquity, ServiceTimesaleForex, ServiceTimesaleFutures, ServiceTimesaleOptions:
	default:
		return Request{}, fmt.Errorf("stream: %s is not a timesale service", service)
	}

	return b.NewRequest(service, CommandSubscribe, symbols, fields), nil
}

// AccountActivity subscribes to order and position events, keyed by the
// principal's streamer subscription key.
func (b *Builder) AccountActivity() (Request, error) {
	if b.subKey == "" {
		return Request{}, fmt.Errorf("stream: user principal has no streamer subscription key")
	}

	return b.NewRequest(ServiceAccountActivity, CommandSubscribe,
		[]string{b.subKey}, []Field{Raw("0,1,2,3")}), nil
}

// Reset restarts request ids at 1 for a new session.
func (b *Builder) Reset() {
	b.mu.Lock()
	b.nextID = 1
	b.mu.Unlock()
}

func (b *Builder) takeID() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	return id
}
