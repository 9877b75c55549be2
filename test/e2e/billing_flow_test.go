package e2e

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meterline/billing/internal/model"
	"github.com/meterline/billing/internal/notifier"
	"github.com/meterline/billing/internal/queue"
	"github.com/meterline/billing/internal/repository"
	"github.com/meterline/billing/internal/services"
	"github.com/meterline/billing/pkg/pg"
	"github.com/meterline/billing/pkg/redis"
	"github.com/meterline/billing/test/fixtures"
	"github.com/meterline/billing/test/helpers"
)

type TestEnvironment struct {
	DB             *pg.DB
	Redis          *miniredis.Miniredis
	RedisAdapter   redis.Adapter
	Queue          *queue.Queue
	UtilityTypeID  int64
	CustomerID     int64
	MeterID        int64
	BillingService *services.BillingService
	PaymentService *services.PaymentService
	TariffService  *services.TariffService
	AccountService *services.AccountService
}

func setupE2EEnvironment(t *testing.T) *TestEnvironment {
	db := helpers.SetupTestDB(t)
	mr, redisAdapter := helpers.SetupTestRedis(t)

	queueConfig := queue.QueueConfig{
		Name:              "billing:events",
		ConsumerGroup:     "billing-group",
		ConsumerName:      "e2e-consumer",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      100 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	}

	q, err := queue.NewQueue(redisAdapter, queueConfig)
	require.NoError(t, err)

	customerRepo := repository.NewCustomerRepository(db)
	meterRepo := repository.NewMeterRepository(db)
	utilityRepo := repository.NewUtilityTypeRepository(db)
	tariffRepo := repository.NewTariffRepository(db)
	readingRepo := repository.NewReadingRepository(db)
	billRepo := repository.NewBillRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	billingService := services.NewBillingService(readingRepo, billRepo, meterRepo, tariffRepo, utilityRepo, q)
	paymentService := services.NewPaymentService(paymentRepo, billRepo, q)
	tariffService := services.NewTariffService(tariffRepo, utilityRepo)
	accountService := services.NewAccountService(customerRepo, meterRepo, utilityRepo)

	// one electricity account with a three bracket tariff
	ut := helpers.CreateTestUtilityType(t, db, "Electricity", "kWh")
	customer := helpers.CreateTestCustomer(t, db, "Asha Perera", "Domestic")
	meter := helpers.CreateTestMeter(t, db, customer.ID, ut.ID)

	ctx := context.Background()
	for _, tariff := range fixtures.DomesticElectricityTariffs(ut.ID) {
		_, err := tariffService.Create(ctx, tariff)
		require.NoError(t, err)
	}

	return &TestEnvironment{
		DB:             db,
		Redis:          mr,
		RedisAdapter:   redisAdapter,
		Queue:          q,
		UtilityTypeID:  ut.ID,
		CustomerID:     customer.ID,
		MeterID:        meter.ID,
		BillingService: billingService,
		PaymentService: paymentService,
		TariffService:  tariffService,
		AccountService: accountService,
	}
}

func (env *TestEnvironment) Cleanup() {
	// Stop queue first (gracefully drain events)
	if env.Queue != nil {
		_ = env.Queue.Stop(5 * time.Second)
	}
	// Give time for any in-flight operations to complete
	time.Sleep(100 * time.Millisecond)
	// Then close Redis
	if env.Redis != nil {
		env.Redis.Close()
	}
}

func TestE2E_ReadingToBillToPayment(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	january := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	february := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)

	_, err := env.BillingService.SubmitReading(ctx, fixtures.NewTestReadingRequest(env.MeterID, 100, january))
	require.NoError(t, err)

	second, err := env.BillingService.SubmitReading(ctx, fixtures.NewTestReadingRequest(env.MeterID, 180, february))
	require.NoError(t, err)

	unbilled, err := env.BillingService.ListUnbilledReadings(ctx)
	require.NoError(t, err)
	assert.Len(t, unbilled, 2)

	bill, err := env.BillingService.GenerateBill(ctx, model.GenerateBillRequest{ReadingID: second.ID})
	require.NoError(t, err)

	// 80 units: 150 fixed + 60*8 + 20*12
	assert.Equal(t, float64(100), bill.PreviousReadingValue)
	assert.Equal(t, float64(180), bill.CurrentReadingValue)
	assert.Equal(t, float64(80), bill.Consumption)
	assert.Equal(t, float64(870), bill.AmountDue)
	assert.Equal(t, model.BillStatusUnpaid, bill.Status)
	assert.Equal(t, bill.BillDate.AddDate(0, 0, 14), bill.DueDate)

	// billed reading drops out of the unbilled list
	unbilled, err = env.BillingService.ListUnbilledReadings(ctx)
	require.NoError(t, err)
	assert.Len(t, unbilled, 1)

	// a second bill for the same reading is refused
	_, err = env.BillingService.GenerateBill(ctx, model.GenerateBillRequest{ReadingID: second.ID})
	assert.ErrorIs(t, err, services.ErrAlreadyBilled)

	payment, err := env.PaymentService.RecordPayment(ctx, fixtures.NewTestPaymentRequest(bill.ID, 870))
	require.NoError(t, err)
	assert.NotEmpty(t, payment.Reference)

	settled, err := env.BillingService.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BillStatusPaid, settled.Status)

	// bill.generated and payment.recorded both hit the stream
	stats, err := env.Queue.GetStats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalEvents, int64(2))
}

func TestE2E_PartialPaymentRejected(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	reading, err := env.BillingService.SubmitReading(ctx,
		fixtures.NewTestReadingRequest(env.MeterID, 50, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	bill, err := env.BillingService.GenerateBill(ctx, model.GenerateBillRequest{ReadingID: reading.ID})
	require.NoError(t, err)

	_, err = env.PaymentService.RecordPayment(ctx, fixtures.NewTestPaymentRequest(bill.ID, bill.AmountDue/2))
	assert.ErrorIs(t, err, services.ErrIncompletePayment)

	unchanged, err := env.BillingService.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BillStatusUnpaid, unchanged.Status)

	payments, err := env.PaymentService.ListPayments(ctx, bill.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestE2E_RegressedReadingRefused(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	_, err := env.BillingService.SubmitReading(ctx,
		fixtures.NewTestReadingRequest(env.MeterID, 500, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	lower, err := env.BillingService.SubmitReading(ctx,
		fixtures.NewTestReadingRequest(env.MeterID, 480, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	_, err = env.BillingService.GenerateBill(ctx, model.GenerateBillRequest{ReadingID: lower.ID})
	assert.ErrorIs(t, err, services.ErrInvalidReading)
}

func TestE2E_OverdueSweepThenSettlement(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	reading, err := env.BillingService.SubmitReading(ctx,
		fixtures.NewTestReadingRequest(env.MeterID, 30, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	// bill dated far enough back that its due date has passed
	bill, err := env.BillingService.GenerateBill(ctx, model.GenerateBillRequest{
		ReadingID: reading.ID,
		BillDate:  time.Now().AddDate(0, 0, -30),
	})
	require.NoError(t, err)

	marked, err := env.BillingService.MarkOverdueBills(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	overdue, err := env.BillingService.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BillStatusOverdue, overdue.Status)

	// overdue bills are still settleable
	_, err = env.PaymentService.RecordPayment(ctx, fixtures.NewTestPaymentRequest(bill.ID, bill.AmountDue))
	require.NoError(t, err)

	settled, err := env.BillingService.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BillStatusPaid, settled.Status)
}

type capturingDeliverer struct {
	notifications chan *notifier.Notification
}

func (c *capturingDeliverer) Deliver(ctx context.Context, n *notifier.Notification) error {
	c.notifications <- n
	return nil
}

func TestE2E_EventDeliveredThroughNotifier(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	reading, err := env.BillingService.SubmitReading(ctx,
		fixtures.NewTestReadingRequest(env.MeterID, 75, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	bill, err := env.BillingService.GenerateBill(ctx, model.GenerateBillRequest{ReadingID: reading.ID})
	require.NoError(t, err)

	deliverer := &capturingDeliverer{notifications: make(chan *notifier.Notification, 4)}
	idempotency := notifier.NewIdempotencyService(env.RedisAdapter, notifier.DefaultIdempotencyConfig())
	processor := notifier.NewWebhookProcessor(deliverer, idempotency)

	err = env.Queue.Consume(func(ctx context.Context, ev *queue.Event) error {
		return processor.Process(ctx, ev)
	})
	require.NoError(t, err)

	select {
	case n := <-deliverer.notifications:
		assert.Equal(t, model.EventBillGenerated, n.Event)

		var payload model.BillGeneratedEvent
		require.NoError(t, json.Unmarshal(n.Payload, &payload))
		assert.Equal(t, bill.ID, payload.BillID)
		assert.Equal(t, bill.AmountDue, payload.AmountDue)
	case <-time.After(3 * time.Second):
		t.Fatal("notification not delivered within timeout")
	}
}
