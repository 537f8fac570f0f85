package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"signal-alert-engine/config"
	"signal-alert-engine/internal/dto"
	"signal-alert-engine/internal/model"
	"signal-alert-engine/internal/notifier"
	"signal-alert-engine/internal/repository"
	"signal-alert-engine/pkg/logger"
	"signal-alert-engine/pkg/metrics"
	"signal-alert-engine/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

const (
	smartBuyTargetFactor  = 0.95
	smartSellTargetFactor = 1.05
)

// AlertService owns the alert lifecycle. A pending alert moves to triggered
// at most once; a triggered alert is never modified again.
type AlertService interface {
	Create(ctx context.Context, owner string, req dto.CreateAlertRequest) (*model.PriceAlert, error)
	CreateSmart(ctx context.Context, owner, assetID string) (*model.PriceAlert, error)
	GenerateAutomaticAlerts(ctx context.Context, owner string) ([]model.PriceAlert, map[string]error)
	List(ctx context.Context, owner string, filter dto.AlertFilter) ([]model.PriceAlert, error)
	Get(ctx context.Context, owner, id string) (*model.PriceAlert, error)
	Update(ctx context.Context, owner, id string, req dto.UpdateAlertRequest) (*model.PriceAlert, bool, error)
	Delete(ctx context.Context, owner, id string) (bool, error)
	CheckTriggers(ctx context.Context, records []model.PriceAlert) ([]model.PriceAlert, error)
	CheckAll(ctx context.Context) ([]model.PriceAlert, error)
	CleanupTriggered(ctx context.Context, olderThan time.Time) (int64, error)
}

type alertService struct {
	cfg           *config.Config
	log           *logger.Logger
	alertRepo     repository.AlertRepository
	priceFeedRepo repository.PriceFeedRepository
	sentimentRepo repository.SentimentRepository
	signalService SignalService
	dispatcher    notifier.Dispatcher
	metrics       *metrics.Recorder
	validate      *validator.Validate
	locks         *utils.KeyedMutex
}

func NewAlertService(
	cfg *config.Config,
	log *logger.Logger,
	alertRepo repository.AlertRepository,
	priceFeedRepo repository.PriceFeedRepository,
	sentimentRepo repository.SentimentRepository,
	signalService SignalService,
	dispatcher notifier.Dispatcher,
	rec *metrics.Recorder,
) AlertService {
	return &alertService{
		cfg:           cfg,
		log:           log,
		alertRepo:     alertRepo,
		priceFeedRepo: priceFeedRepo,
		sentimentRepo: sentimentRepo,
		signalService: signalService,
		dispatcher:    dispatcher,
		metrics:       rec,
		validate:      newValidator(),
		locks:         utils.NewKeyedMutex(),
	}
}

func requireOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return &dto.ValidationError{Field: "owner", Message: "is required"}
	}
	return nil
}

func validPrice(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func (s *alertService) Create(ctx context.Context, owner string, req dto.CreateAlertRequest) (*model.PriceAlert, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	req.AssetID = strings.ToLower(strings.TrimSpace(req.AssetID))
	req.Condition = strings.ToLower(strings.TrimSpace(req.Condition))
	req.Currency = strings.ToLower(strings.TrimSpace(req.Currency))
	if err := validateRequest(ctx, s.validate, &req); err != nil {
		return nil, err
	}
	if !validPrice(req.TargetPrice) {
		return nil, &dto.ValidationError{Field: "target_price", Message: "must be a finite positive number"}
	}

	symbol := req.Symbol
	if symbol == "" {
		symbol = s.cfg.Signal.AssetByID(req.AssetID).Symbol
	}
	name := req.Name
	if name == "" {
		name = fmt.Sprintf("%s %s %g %s", symbol, req.Condition, req.TargetPrice, strings.ToUpper(req.Currency))
	}

	alert := &model.PriceAlert{
		ID:          uuid.NewString(),
		Owner:       owner,
		Kind:        dto.AlertKindManual,
		AssetID:     req.AssetID,
		Symbol:      symbol,
		Name:        name,
		Condition:   req.Condition,
		TargetPrice: req.TargetPrice,
		Currency:    req.Currency,
		Active:      true,
		Notes:       req.Notes,
		CreatedAt:   utils.Now(),
	}
	if err := s.alertRepo.Create(ctx, alert); err != nil {
		return nil, &dto.PersistenceError{Op: "create alert", Err: err}
	}

	s.metrics.RecordAlert("created")
	s.log.InfoContext(ctx, "Price alert created",
		logger.StringField("alert_id", alert.ID),
		logger.StringField("owner", owner),
		logger.StringField("asset_id", alert.AssetID),
	)
	return alert, nil
}

// CreateSmart derives an alert from the asset's best signal. Buy signals wait
// for a 5% dip, sell signals for a 5% rise.
func (s *alertService) CreateSmart(ctx context.Context, owner, assetID string) (*model.PriceAlert, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	assetID = strings.ToLower(strings.TrimSpace(assetID))
	if assetID == "" {
		return nil, &dto.ValidationError{Field: "asset_id", Message: "is required"}
	}

	best, err := s.signalService.GetBestSignal(ctx, assetID, s.cfg.Signal.DefaultTimeframe)
	if err != nil {
		return nil, err
	}

	currency := s.cfg.Alert.Currency
	price, err := s.currentPrice(ctx, assetID, currency)
	if err != nil {
		return nil, err
	}

	condition := dto.ConditionBelow
	target := price * smartBuyTargetFactor
	if best.Type.IsSellLike() {
		condition = dto.ConditionAbove
		target = price * smartSellTargetFactor
	}
	target = utils.RoundTo(target, 8)

	symbol := best.Symbol
	if symbol == "" {
		symbol = s.cfg.Signal.AssetByID(assetID).Symbol
	}

	estimated := best.Estimated
	var sentimentAtCreation *float64
	if reading, err := s.sentimentRepo.GetSentiment(ctx, assetID); err != nil {
		s.log.WarnContext(ctx, "sentiment unavailable for smart alert", logger.StringField("asset_id", assetID), logger.ErrorField(err))
	} else if reading != nil {
		sentimentAtCreation = utils.ToPointer(reading.OverallScore)
		estimated = estimated || reading.Estimated()
	}

	alert := &model.PriceAlert{
		ID:          uuid.NewString(),
		Owner:       owner,
		Kind:        dto.AlertKindSmart,
		AssetID:     assetID,
		Symbol:      symbol,
		Name:        fmt.Sprintf("Smart %s alert for %s", strings.ReplaceAll(string(best.Type), "_", " "), symbol),
		Condition:   string(condition),
		TargetPrice: target,
		Currency:    currency,
		Active:      true,
		Notes:       smartAlertNotes(*best),
		Factors: datatypes.NewJSONType(model.AlertFactors{
			Rationale:     append([]string(nil), best.Rationale...),
			Confidence:    best.Confidence,
			Timeframe:     best.Timeframe,
			Price:         best.Price,
			StopLossPct:   best.StopLossPct,
			TakeProfitPct: best.TakeProfitPct,
		}),
		Severity:            severityFor(best.Confidence),
		SignalType:          string(best.Type),
		RecommendedAction:   recommendedAction(*best, symbol, target, currency),
		SentimentAtCreation: sentimentAtCreation,
		Estimated:           estimated,
		CreatedAt:           utils.Now(),
	}
	if err := s.alertRepo.Create(ctx, alert); err != nil {
		return nil, &dto.PersistenceError{Op: "create smart alert", Err: err}
	}

	s.metrics.RecordAlert("smart_created")
	s.log.InfoContext(ctx, "Smart alert created",
		logger.StringField("alert_id", alert.ID),
		logger.StringField("owner", owner),
		logger.StringField("asset_id", assetID),
		logger.StringField("signal_type", alert.SignalType),
		logger.FloatField("target_price", target),
		logger.BoolField("estimated", estimated),
	)
	return alert, nil
}

func severityFor(confidence float64) string {
	switch {
	case confidence > 80:
		return dto.SeverityHigh
	case confidence > 60:
		return dto.SeverityMedium
	default:
		return dto.SeverityLow
	}
}

func smartAlertNotes(sig dto.TradingSignal) string {
	notes := "Based on: " + strings.Join(sig.Rationale, ", ") + "."
	if sig.Description != "" {
		notes += " " + sig.Description
	}
	return notes
}

func recommendedAction(sig dto.TradingSignal, symbol string, target float64, currency string) string {
	var b strings.Builder
	cur := strings.ToUpper(currency)
	if sig.Type.IsBuyLike() {
		verb := "Consider buying"
		if sig.Type == dto.SignalStrongBuy {
			verb = "Strong buy opportunity: consider buying"
		}
		b.WriteString(fmt.Sprintf("%s %s near %g %s.", verb, symbol, target, cur))
		if sig.StopLossPct != nil {
			b.WriteString(fmt.Sprintf(" Set a stop loss %.0f%% below entry", *sig.StopLossPct))
			if sig.TakeProfitPct != nil {
				b.WriteString(fmt.Sprintf(" and take profit %.0f%% above entry", *sig.TakeProfitPct))
			}
			b.WriteString(".")
		}
		return b.String()
	}

	verb := "Consider selling or reducing exposure to"
	if sig.Type == dto.SignalStrongSell {
		verb = "Strong sell signal: consider exiting"
	}
	b.WriteString(fmt.Sprintf("%s %s near %g %s.", verb, symbol, target, cur))
	return b.String()
}

func (s *alertService) currentPrice(ctx context.Context, assetID, currency string) (float64, error) {
	snapshots, err := s.priceFeedRepo.GetPrices(ctx, currency, []string{assetID})
	if err != nil {
		return 0, &dto.PriceUnavailableError{AssetID: assetID, Currency: currency, Err: err}
	}
	for _, snap := range snapshots {
		if snap.AssetID == assetID && validPrice(snap.Price) {
			return snap.Price, nil
		}
	}
	return 0, &dto.PriceUnavailableError{AssetID: assetID, Currency: currency}
}

// GenerateAutomaticAlerts creates a smart alert for each configured top asset
// that has no pending smart alert for owner yet. Passes for the same owner
// run one at a time so the pending check and the inserts stay consistent.
func (s *alertService) GenerateAutomaticAlerts(ctx context.Context, owner string) ([]model.PriceAlert, map[string]error) {
	errs := make(map[string]error)
	if err := requireOwner(owner); err != nil {
		errs[""] = err
		return nil, errs
	}

	unlock := s.locks.Lock(owner + ":auto")
	defer unlock()

	existing, err := s.alertRepo.List(ctx, model.GetPriceAlertParam{
		Owner:     &owner,
		Kind:      utils.ToPointer(dto.AlertKindSmart),
		Active:    utils.ToPointer(true),
		Triggered: utils.ToPointer(false),
	})
	if err != nil {
		s.log.ErrorContext(ctx, "failed to load existing smart alerts", logger.ErrorField(&dto.PersistenceError{Op: "list alerts", Err: err}))
		existing = nil
	}
	covered := make(map[string]bool, len(existing))
	for _, a := range existing {
		covered[a.AssetID] = true
	}

	assets := utils.Dedup(s.cfg.Alert.TopAssets)
	created := make([]*model.PriceAlert, len(assets))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.maxConcurrency())
	for i, assetID := range assets {
		if !utils.ShouldContinue(ctx, s.log) {
			break
		}
		if covered[assetID] {
			continue
		}
		i, assetID := i, assetID
		g.Go(func() error {
			alert, err := s.CreateSmart(ctx, owner, assetID)
			if err != nil {
				mu.Lock()
				errs[assetID] = err
				mu.Unlock()
				s.log.WarnContext(ctx, "Skipped automatic alert", logger.StringField("asset_id", assetID), logger.ErrorField(err))
				return nil
			}
			created[i] = alert
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.PriceAlert, 0, len(assets))
	for _, a := range created {
		if a != nil {
			out = append(out, *a)
		}
	}
	return out, errs
}

// List returns the owner's alerts oldest first. A failing store read is logged
// and yields no records.
func (s *alertService) List(ctx context.Context, owner string, filter dto.AlertFilter) ([]model.PriceAlert, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	param := model.GetPriceAlertParam{
		Owner:     &owner,
		Active:    filter.Active,
		Triggered: filter.Triggered,
	}
	if filter.AssetID != "" {
		param.AssetID = utils.ToPointer(strings.ToLower(filter.AssetID))
	}
	if filter.Kind != "" {
		param.Kind = utils.ToPointer(strings.ToLower(filter.Kind))
	}

	alerts, err := s.alertRepo.List(ctx, param)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to list alerts", logger.StringField("owner", owner), logger.ErrorField(err))
		return []model.PriceAlert{}, nil
	}
	return alerts, nil
}

func (s *alertService) Get(ctx context.Context, owner, id string) (*model.PriceAlert, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	alert, err := s.findOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, dto.ErrAlertNotFound
	}
	return alert, nil
}

func (s *alertService) findOwned(ctx context.Context, owner, id string) (*model.PriceAlert, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	alert, err := s.alertRepo.FindByID(ctx, id)
	if err != nil {
		return nil, &dto.PersistenceError{Op: "find alert", Err: err}
	}
	if alert == nil || alert.Owner != owner {
		return nil, nil
	}
	return alert, nil
}

// Update merges the non-nil request fields into the alert. A missing id
// reports (nil, false, nil); a triggered alert is refused.
func (s *alertService) Update(ctx context.Context, owner, id string, req dto.UpdateAlertRequest) (*model.PriceAlert, bool, error) {
	if err := requireOwner(owner); err != nil {
		return nil, false, err
	}
	if req.Condition != nil {
		req.Condition = utils.ToPointer(strings.ToLower(strings.TrimSpace(*req.Condition)))
	}
	if err := validateRequest(ctx, s.validate, &req); err != nil {
		return nil, false, err
	}
	if req.TargetPrice != nil && !validPrice(*req.TargetPrice) {
		return nil, false, &dto.ValidationError{Field: "target_price", Message: "must be a finite positive number"}
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.findOwned(ctx, owner, id)
	if err != nil {
		return nil, false, err
	}
	if current == nil {
		return nil, false, nil
	}
	if current.IsTriggered() {
		return nil, false, &dto.ValidationError{Field: "id", Message: "alert has already triggered"}
	}

	updated := current.Clone()
	if req.Condition != nil {
		updated.Condition = *req.Condition
	}
	if req.TargetPrice != nil {
		updated.TargetPrice = *req.TargetPrice
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Notes != nil {
		updated.Notes = *req.Notes
	}
	updated.UpdatedAt = utils.Now()

	ok, err := s.alertRepo.Update(ctx, &updated)
	if err != nil {
		return nil, false, &dto.PersistenceError{Op: "update alert", Err: err}
	}
	if !ok {
		// Triggered or deleted by another process between read and write.
		latest, err := s.findOwned(ctx, owner, id)
		if err != nil {
			return nil, false, err
		}
		if latest != nil && latest.IsTriggered() {
			return nil, false, &dto.ValidationError{Field: "id", Message: "alert has already triggered"}
		}
		return nil, false, nil
	}

	s.metrics.RecordAlert("updated")
	return &updated, true, nil
}

func (s *alertService) Delete(ctx context.Context, owner, id string) (bool, error) {
	if err := requireOwner(owner); err != nil {
		return false, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.findOwned(ctx, owner, id)
	if err != nil {
		return false, err
	}
	if current == nil {
		return false, nil
	}

	ok, err := s.alertRepo.Delete(ctx, id)
	if err != nil {
		return false, &dto.PersistenceError{Op: "delete alert", Err: err}
	}
	if ok {
		s.metrics.RecordAlert("deleted")
	}
	return ok, nil
}

type alertGroupKey struct {
	assetID  string
	currency string
}

// CheckTriggers evaluates pending records against one price fetch per
// (asset, currency) group and returns the alerts this call triggered. A group
// whose price is unavailable is skipped. Store write failures are joined into
// the returned error; alerts that did trigger are still returned.
func (s *alertService) CheckTriggers(ctx context.Context, records []model.PriceAlert) ([]model.PriceAlert, error) {
	defer s.metrics.ObserveSince("check_triggers", time.Now())

	groups := make(map[alertGroupKey][]model.PriceAlert)
	var order []alertGroupKey
	for _, r := range records {
		if !r.IsPending() {
			continue
		}
		key := alertGroupKey{assetID: r.AssetID, currency: r.Currency}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}
	if len(order) == 0 {
		return []model.PriceAlert{}, nil
	}

	var (
		mu        sync.Mutex
		triggered []model.PriceAlert
		writeErrs []error
	)

	var g errgroup.Group
	g.SetLimit(s.maxConcurrency())
	for _, key := range order {
		if !utils.ShouldContinue(ctx, s.log) {
			break
		}
		key := key
		members := groups[key]
		g.Go(func() error {
			feedCtx, cancel := s.feedContext(ctx)
			price, err := s.currentPrice(feedCtx, key.assetID, key.currency)
			cancel()
			if err != nil {
				s.log.WarnContext(ctx, "Skipping alert group, price unavailable",
					logger.StringField("asset_id", key.assetID),
					logger.StringField("currency", key.currency),
					logger.ErrorField(err),
				)
				return nil
			}

			for _, alert := range members {
				if !dto.AlertCondition(alert.Condition).Met(price, alert.TargetPrice) {
					continue
				}
				fired, err := s.fire(ctx, alert, price)
				mu.Lock()
				if err != nil {
					writeErrs = append(writeErrs, err)
				} else if fired != nil {
					triggered = append(triggered, *fired)
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(triggered, func(i, j int) bool {
		if triggered[i].CreatedAt.Equal(triggered[j].CreatedAt) {
			return triggered[i].ID < triggered[j].ID
		}
		return triggered[i].CreatedAt.Before(triggered[j].CreatedAt)
	})
	if triggered == nil {
		triggered = []model.PriceAlert{}
	}
	return triggered, errors.Join(writeErrs...)
}

// fire marks the alert notified and emits one notification. A nil alert and
// nil error means another check won the race.
func (s *alertService) fire(ctx context.Context, alert model.PriceAlert, price float64) (*model.PriceAlert, error) {
	unlock := s.locks.Lock(alert.ID)
	defer unlock()

	now := utils.Now()
	ok, err := s.alertRepo.MarkNotified(ctx, alert.ID, now, price)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to persist alert trigger",
			logger.StringField("alert_id", alert.ID),
			logger.ErrorField(err),
		)
		return nil, &dto.PersistenceError{Op: "mark alert " + alert.ID + " notified", Err: err}
	}
	if !ok {
		return nil, nil
	}

	fired := alert.Clone()
	fired.NotifiedAt = &now
	fired.TriggeredPrice = utils.ToPointer(price)

	s.metrics.RecordAlert("triggered")
	s.log.InfoContext(ctx, "Alert triggered",
		logger.StringField("alert_id", fired.ID),
		logger.StringField("asset_id", fired.AssetID),
		logger.FloatField("price", price),
	)
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, notificationFor(fired, price, now))
	}
	return &fired, nil
}

func notificationFor(a model.PriceAlert, price float64, at time.Time) dto.NotificationEvent {
	message := a.Notes
	if a.Kind == dto.AlertKindSmart && a.RecommendedAction != "" {
		message = a.RecommendedAction
	}
	return dto.NotificationEvent{
		Type:        dto.EventAlertTriggered,
		AlertID:     a.ID,
		Owner:       a.Owner,
		AssetID:     a.AssetID,
		Symbol:      a.Symbol,
		Condition:   a.Condition,
		TargetPrice: a.TargetPrice,
		Price:       price,
		Currency:    a.Currency,
		Severity:    a.Severity,
		Message:     message,
		OccurredAt:  at,
	}
}

// CheckAll runs a trigger pass over every pending alert in the store. A failed
// read is logged and treated as an empty store.
func (s *alertService) CheckAll(ctx context.Context) ([]model.PriceAlert, error) {
	pending, err := s.alertRepo.List(ctx, model.GetPriceAlertParam{
		Active:    utils.ToPointer(true),
		Triggered: utils.ToPointer(false),
	})
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load pending alerts", logger.ErrorField(&dto.PersistenceError{Op: "list alerts", Err: err}))
		return []model.PriceAlert{}, nil
	}
	return s.CheckTriggers(ctx, pending)
}

func (s *alertService) CleanupTriggered(ctx context.Context, olderThan time.Time) (int64, error) {
	deleted, err := s.alertRepo.DeleteTriggeredBefore(ctx, olderThan)
	if err != nil {
		return 0, &dto.PersistenceError{Op: "delete triggered alerts", Err: err}
	}
	if deleted > 0 {
		s.log.InfoContext(ctx, "Removed triggered alerts", logger.Field("count", deleted), logger.Field("before", olderThan))
	}
	return deleted, nil
}

func (s *alertService) feedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Alert.FeedTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Alert.FeedTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *alertService) maxConcurrency() int {
	if s.cfg.Alert.MaxConcurrency > 0 {
		return s.cfg.Alert.MaxConcurrency
	}
	return 4
}
