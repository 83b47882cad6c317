package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	exchangeApp "github.com/fd1az/depositwatch/business/exchange/app"
	exchange "github.com/fd1az/depositwatch/business/exchange/domain"
	"github.com/fd1az/depositwatch/business/operator/domain"
	watchApp "github.com/fd1az/depositwatch/business/watch/app"
	watchDomain "github.com/fd1az/depositwatch/business/watch/domain"
	"github.com/fd1az/depositwatch/internal/apperror"
	"github.com/fd1az/depositwatch/internal/i18n"
	"github.com/fd1az/depositwatch/internal/logger"
)

const tracerName = "operator.orchestrator"

// Callback payloads. The SELECT_ prefix carries either an exchange name or
// one of the action markers below; SET_LANG_ carries a language code.
const (
	CallbackSelectPrefix = "SELECT_"
	CallbackLangPrefix   = "SET_LANG_"

	actionCheckBalance   = "0_button"
	actionClearBalances  = "1_button"
	actionClearSession   = "2_button"
	actionSelectLanguage = "3_button"
)

const displayTimeFormat = "January 2, 2006, 3:04 PM"

// Orchestrator drives the operator conversation: exchange selection, watch
// sessions, the balance sheet and language switching.
type Orchestrator struct {
	session    *domain.Session
	ledger     *domain.Ledger
	registry   *exchangeApp.Registry
	factory    *watchApp.ReconcilerFactory
	notifier   Notifier
	store      SessionStore
	translator *i18n.Translator
	assetsDir  string
	location   *time.Location
	logger     logger.LoggerInterface
	tracer     trace.Tracer
}

// NewOrchestrator wires the orchestrator and restores persisted state.
func NewOrchestrator(
	session *domain.Session,
	ledger *domain.Ledger,
	registry *exchangeApp.Registry,
	factory *watchApp.ReconcilerFactory,
	notifier Notifier,
	store SessionStore,
	translator *i18n.Translator,
	assetsDir string,
	location *time.Location,
	log logger.LoggerInterface,
) *Orchestrator {
	o := &Orchestrator{
		session:    session,
		ledger:     ledger,
		registry:   registry,
		factory:    factory,
		notifier:   notifier,
		store:      store,
		translator: translator,
		assetsDir:  assetsDir,
		location:   location,
		logger:     log,
		tracer:     otel.Tracer(tracerName),
	}
	o.restore()
	return o
}

// restore loads the persisted language and balance sheet.
func (o *Orchestrator) restore() {
	snap, found, err := o.store.Load()
	if err != nil {
		o.logger.Warn(context.Background(), "session restore failed", "error", err)
		return
	}
	if !found {
		return
	}

	if snap.Lang != "" && o.translator.HasLanguage(snap.Lang) {
		o.session.SetLanguage(snap.Lang)
	}

	for name, b := range snap.Balances {
		ex, err := exchange.ParseExchangeID(name)
		if err != nil {
			continue
		}
		for _, tx := range b.Transactions {
			amount, err := decimal.NewFromString(tx.Amount)
			if err != nil {
				continue
			}
			at, err := time.Parse(time.RFC3339, tx.Time)
			if err != nil {
				at = time.Now()
			}
			o.ledger.Record(ex, amount, at)
		}
	}
}

// persist writes the current language and ledger to the session store.
func (o *Orchestrator) persist(ctx context.Context) {
	snap := Snapshot{
		Lang:     o.session.Language(),
		Balances: make(map[string]BalanceSnapshot),
	}

	for _, ex := range exchange.All() {
		total, entries, ok := o.ledger.TotalFor(ex)
		if !ok {
			continue
		}
		b := BalanceSnapshot{Total: total.String()}
		for _, e := range entries {
			b.Transactions = append(b.Transactions, TransactionSnapshot{
				Amount: e.Amount.String(),
				Time:   e.RecordedAt.Format(time.RFC3339),
			})
		}
		snap.Balances[ex.String()] = b
	}

	if err := o.store.Save(snap); err != nil {
		o.logger.Warn(ctx, "session persist failed",
			"error", apperror.Wrap(err, apperror.CodeSessionStoreFailed, "saving session snapshot"))
	}
}

func (o *Orchestrator) t(key string, args i18n.Args) string {
	return o.translator.T(o.session.Language(), key, args)
}

func (o *Orchestrator) watchMinutes() string {
	return strconv.Itoa(int(o.factory.Config().MaxDuration.Minutes()))
}

// HandleStart greets the operator and shows the menu.
func (o *Orchestrator) HandleStart(ctx context.Context, chatID int64, botName string) {
	if botName == "" {
		botName = "Bot"
	}
	o.send(ctx, chatID, o.t("welcome", i18n.Args{"botName": botName}))
	o.SendMenu(ctx, chatID)
}

// SendMenu shows the main inline keyboard: configured exchanges, balance
// actions, language and session cancel.
func (o *Orchestrator) SendMenu(ctx context.Context, chatID int64) {
	var exchangeRow []MenuItem
	for _, id := range o.registry.IDs() {
		exchangeRow = append(exchangeRow, MenuItem{
			Label:  id.DisplayName() + " ✅",
			Action: CallbackSelectPrefix + id.String(),
		})
	}

	menu := Menu{
		exchangeRow,
		{
			{Label: o.t("checkDailyBalance", nil) + " ✅", Action: CallbackSelectPrefix + actionCheckBalance},
			{Label: o.t("clearDailyBalance", nil) + " ✅", Action: CallbackSelectPrefix + actionClearBalances},
		},
		{
			{Label: o.t("selectLanguage", nil) + " ✅", Action: CallbackSelectPrefix + actionSelectLanguage},
		},
		{
			{Label: o.t("clearSession", nil) + " ❌", Action: CallbackSelectPrefix + actionClearSession},
		},
	}

	if err := o.notifier.SendMenu(ctx, chatID, o.t("chooseAction", nil), menu); err != nil {
		o.logger.Warn(ctx, "menu send failed", "error", err)
	}
}

// HandleCallback routes an inline keyboard press.
func (o *Orchestrator) HandleCallback(ctx context.Context, chatID int64, data string) {
	switch {
	case strings.HasPrefix(data, CallbackLangPrefix):
		o.setLanguage(ctx, chatID, strings.TrimPrefix(data, CallbackLangPrefix))
	case strings.HasPrefix(data, CallbackSelectPrefix):
		o.handleAction(ctx, chatID, strings.TrimPrefix(data, CallbackSelectPrefix))
	default:
		o.send(ctx, chatID, o.t("invalidAction", nil))
	}
}

func (o *Orchestrator) handleAction(ctx context.Context, chatID int64, value string) {
	switch value {
	case actionSelectLanguage:
		o.sendLanguageMenu(ctx, chatID)
		return
	case actionClearSession:
		o.session.Clear()
		o.send(ctx, chatID, o.t("clearSessionSuccess", nil))
		return
	case actionClearBalances:
		o.ledger.Reset()
		o.persist(ctx)
		o.send(ctx, chatID, o.t("clearDailyBalancePrompt", nil))
		return
	case actionCheckBalance:
		o.sendAggregateBalance(ctx, chatID)
		return
	}

	// Anything else is an exchange selection.
	id, err := exchange.ParseExchangeID(value)
	if err != nil {
		o.send(ctx, chatID, o.t("invalidAction", nil))
		return
	}

	if err := o.session.SelectExchange(id); err != nil {
		o.send(ctx, chatID, o.t("sessionStillRunning", nil))
		return
	}

	o.send(ctx, chatID, o.t("amountRequest", i18n.Args{"exchange": id.DisplayName()}))
}

func (o *Orchestrator) sendLanguageMenu(ctx context.Context, chatID int64) {
	menu := Menu{
		{{Label: "English", Action: CallbackLangPrefix + "en"}},
		{{Label: "Tiếng Việt", Action: CallbackLangPrefix + "vi"}},
	}
	if err := o.notifier.SendMenu(ctx, chatID, "Please select your language:", menu); err != nil {
		o.logger.Warn(ctx, "language menu send failed", "error", err)
	}
}

func (o *Orchestrator) setLanguage(ctx context.Context, chatID int64, lang string) {
	if !o.translator.HasLanguage(lang) {
		o.send(ctx, chatID, o.t("invalidAction", nil))
		return
	}
	o.session.SetLanguage(lang)
	o.persist(ctx)
	o.SendMenu(ctx, chatID)
}

// HandleText handles a plain message: while idle it is an expected fiat
// amount, while frozen it is refused.
func (o *Orchestrator) HandleText(ctx context.Context, chatID int64, text string) {
	if o.session.Active() {
		o.send(ctx, chatID, o.t("sessionInProgress", i18n.Args{"time": o.watchMinutes()}))
		return
	}

	if _, ok := o.session.Exchange(); !ok {
		o.send(ctx, chatID, o.t("selectExchange", nil))
		return
	}

	fiat, err := parseAmount(text)
	if err != nil {
		o.send(ctx, chatID, o.t("invalidAmount", nil))
		return
	}

	o.startWatch(ctx, chatID, fiat)
}

// HandleSetCommand handles "/set vnd=26000" style rate updates.
func (o *Orchestrator) HandleSetCommand(ctx context.Context, chatID int64, args string) {
	params := parseKeyValues(args)

	raw, ok := params["vnd"]
	if !ok {
		return
	}

	rate, err := parseAmount(raw)
	if err != nil {
		o.send(ctx, chatID, o.t("invalidAmount", nil))
		return
	}

	if err := o.session.SetRate(rate); err != nil {
		if apperror.GetCode(err) == apperror.CodeSessionFrozen {
			o.send(ctx, chatID, o.t("sessionStillRunning", nil))
			return
		}
		o.send(ctx, chatID, o.t("invalidAmount", nil))
		return
	}

	o.send(ctx, chatID, o.t("priceChanged", i18n.Args{"price": rate.String()}))
}

// HandleBalanceBreakdown replies with one message per exchange that has
// recorded entries.
func (o *Orchestrator) HandleBalanceBreakdown(ctx context.Context, chatID int64) {
	sent := false
	for _, ex := range exchange.All() {
		total, entries, ok := o.ledger.TotalFor(ex)
		if !ok {
			continue
		}
		o.send(ctx, chatID, o.balanceMessage(" via "+ex.DisplayName(), total, entries))
		sent = true
	}

	if !sent {
		o.send(ctx, chatID, o.t("nothingOnBalanceSheet", nil))
	}
}

func (o *Orchestrator) sendAggregateBalance(ctx context.Context, chatID int64) {
	total, entries, ok := o.ledger.Aggregate()
	if !ok {
		o.send(ctx, chatID, o.t("nothingOnBalanceSheet", nil))
		return
	}
	o.send(ctx, chatID, o.balanceMessage("", total, entries))
}

func (o *Orchestrator) balanceMessage(substrName string, total decimal.Decimal, entries []domain.Entry) string {
	var sb strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&sb, "%d:   %s %s  %s\n",
			i+1, e.Amount.String(), e.Exchange.DisplayName(), e.RecordedAt.In(o.location).Format(displayTimeFormat))
	}

	return o.t("dailyBalance", i18n.Args{
		"substrName":   substrName,
		"total":        total.String(),
		"transactions": sb.String(),
	})
}

// HandleClearBalances resets the ledger from the /clear_balances command.
func (o *Orchestrator) HandleClearBalances(ctx context.Context, chatID int64) {
	o.ledger.Reset()
	o.persist(ctx)
	o.send(ctx, chatID, o.t("clearDailyBalancePrompt", nil))
}

// HandleFunding reports funding wallet balances for every gateway that can
// serve them.
func (o *Orchestrator) HandleFunding(ctx context.Context, chatID int64) {
	asset := o.factory.Config().Asset
	sent := false

	for _, id := range o.registry.IDs() {
		gw, err := o.registry.Lookup(id)
		if err != nil {
			continue
		}
		provider, ok := gw.(exchangeApp.BalanceProvider)
		if !ok {
			continue
		}

		balance, err := provider.FundingBalance(ctx, asset)
		if err != nil {
			o.logger.Warn(ctx, "funding balance fetch failed",
				"exchange", id.String(), "error", err)
			continue
		}

		o.send(ctx, chatID, o.t("fundingBalance", i18n.Args{
			"exchange": id.DisplayName(),
			"balance":  balance.String(),
			"asset":    asset,
		}))
		sent = true
	}

	if !sent {
		o.send(ctx, chatID, o.t("fundingBalanceUnavailable", nil))
	}
}

// startWatch converts the fiat amount, freezes the session and launches the
// polling run in the background.
func (o *Orchestrator) startWatch(ctx context.Context, chatID int64, fiat decimal.Decimal) {
	expected, err := o.session.Convert(fiat)
	if err != nil {
		o.send(ctx, chatID, o.t("invalidAmount", nil))
		return
	}

	ex, token, err := o.session.BeginWatch()
	if err != nil {
		if apperror.GetCode(err) == apperror.CodeSessionFrozen {
			o.send(ctx, chatID, o.t("sessionInProgress", i18n.Args{"time": o.watchMinutes()}))
		} else {
			o.send(ctx, chatID, o.t("selectExchange", nil))
		}
		return
	}

	gateway, err := o.registry.Lookup(ex)
	if err != nil {
		o.session.EndWatch(token)
		o.send(ctx, chatID, o.t("selectExchange", nil))
		return
	}

	o.send(ctx, chatID, o.t("enteredAmount", i18n.Args{
		"amount":         fiat.String(),
		"convertedValue": expected.String(),
	}))
	o.sendPaymentQR(ctx, chatID, ex)
	o.send(ctx, chatID, o.t("sessionStarted", i18n.Args{
		"convertedValue": expected.String(),
		"time":           o.watchMinutes(),
	}))

	go o.runWatch(ctx, chatID, ex, gateway, expected, token)
}

func (o *Orchestrator) runWatch(ctx context.Context, chatID int64, ex exchange.ExchangeID, gateway exchangeApp.Gateway, expected decimal.Decimal, token domain.WatchToken) {
	ctx, span := o.tracer.Start(ctx, "operator.watch_session",
		trace.WithAttributes(
			attribute.String("exchange", ex.String()),
			attribute.String("expected", expected.String()),
		),
	)
	defer span.End()

	active := func() bool { return o.session.WatchActive(token) }
	result := o.factory.For(gateway).Run(ctx, expected, active)
	span.SetAttributes(attribute.String("outcome", string(result.Outcome)))

	switch result.Outcome {
	case watchDomain.OutcomeMatched:
		o.ledger.Record(ex, result.Deposit.Amount, time.Now())
		o.persist(ctx)
		o.send(ctx, chatID, o.t("balanceChanged", i18n.Args{
			"difference": result.Deposit.Amount.String(),
		}))
		o.session.EndWatch(token)

	case watchDomain.OutcomeTimedOut:
		o.send(ctx, chatID, o.t("cancelSessionDueToNoPayment", nil))
		o.session.EndWatch(token)

	case watchDomain.OutcomeCancelled:
		// The cancel path already replied and may have started new state
		// this goroutine no longer owns; EndWatch is a no-op then.
		o.session.EndWatch(token)
	}
}

func (o *Orchestrator) send(ctx context.Context, chatID int64, text string) {
	if err := o.notifier.Send(ctx, chatID, text); err != nil {
		o.logger.Warn(ctx, "message send failed",
			"error", apperror.Wrap(err, apperror.CodeTelegramSendFailed, "chat: "+strconv.FormatInt(chatID, 10)))
	}
}

// sendPaymentQR sends the exchange's payment QR image. Best effort: a
// missing asset file skips the photo instead of blocking the session.
func (o *Orchestrator) sendPaymentQR(ctx context.Context, chatID int64, ex exchange.ExchangeID) {
	if o.assetsDir == "" {
		return
	}

	path := filepath.Join(o.assetsDir, ex.String()+".jpg")
	if _, err := os.Stat(path); err != nil {
		o.logger.Debug(ctx, "payment QR image missing", "path", path)
		return
	}

	if err := o.notifier.SendPhoto(ctx, chatID, path); err != nil {
		o.logger.Warn(ctx, "photo send failed",
			"error", apperror.Wrap(err, apperror.CodeTelegramSendFailed, "path: "+path))
	}
}

// parseAmount parses a positive decimal amount. Values below a ten
// thousandth are treated as zero and rejected.
func parseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, apperror.New(apperror.CodeInvalidAmount, apperror.WithCause(err))
	}
	if d.LessThan(decimal.New(1, -4)) {
		return decimal.Zero, apperror.New(apperror.CodeInvalidAmount,
			apperror.WithContext("amount: "+raw))
	}
	return d, nil
}

// parseKeyValues parses "key=value key2=value2" command arguments.
func parseKeyValues(args string) map[string]string {
	out := make(map[string]string)
	for _, field := range strings.Fields(args) {
		parts := strings.SplitN(field, "=", 2)
		if len(parts) != 2 {
			continue
		}
		out[parts[0]] = parts[1]
	}
	return out
}
