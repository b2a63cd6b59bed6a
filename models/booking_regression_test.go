package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mmsoftworks/godown_backend/config"
	"github.com/mmsoftworks/godown_backend/docgen"
	"github.com/mmsoftworks/godown_backend/models"
	"github.com/mmsoftworks/godown_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// setupIntegrationEnv boots mysql + redis containers, connects the globals
// and migrates a fresh schema. Returns a booking service writing bill files
// into a temp dir.
func setupIntegrationEnv(t *testing.T) *models.BookingService {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "godown_test")

	db := config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	if err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error; err != nil {
		t.Fatalf("set isolation level: %v", err)
	}

	docs, err := docgen.NewExcelGenerator(t.TempDir())
	if err != nil {
		t.Fatalf("NewExcelGenerator: %v", err)
	}
	return models.NewBookingService(db, logrus.New(), docs, models.NewRateCatalog(db))
}

func mustCreateStock(t *testing.T, ctx context.Context, godownId int, name string, perCase int, cases int) *models.StockItem {
	t.Helper()
	stockItem, err := models.CreateStockItem(ctx, &models.NewStockItem{
		GodownId:    godownId,
		ProductType: "Cracker",
		ProductName: name,
		Brand:       "Std",
		PerCase:     perCase,
		Cases:       cases,
	})
	if err != nil {
		t.Fatalf("CreateStockItem(%s): %v", name, err)
	}
	return stockItem
}

func fetchStock(t *testing.T, ctx context.Context, id int) *models.StockItem {
	t.Helper()
	stockItem, err := models.GetStockItem(ctx, id)
	if err != nil {
		t.Fatalf("GetStockItem(%d): %v", id, err)
	}
	return stockItem
}

func historyNet(t *testing.T, ctx context.Context, stockId int) (added int, taken int) {
	t.Helper()
	entries, err := models.GetStockHistory(ctx, stockId)
	if err != nil {
		t.Fatalf("GetStockHistory(%d): %v", stockId, err)
	}
	for _, e := range entries {
		switch e.Action {
		case models.StockActionAdded:
			added += e.Cases
		case models.StockActionTaken:
			taken += e.Cases
		}
	}
	return added, taken
}

func TestBookingLifecycleRegression(t *testing.T) {
	svc := setupIntegrationEnv(t)
	ctx := context.Background()

	godown, err := models.CreateGodown(ctx, &models.NewGodown{Name: "Main Godown", Location: "Sivakasi"})
	if err != nil {
		t.Fatalf("CreateGodown: %v", err)
	}

	sparklers := mustCreateStock(t, ctx, godown.ID, "Sparklers", 12, 10)
	rockets := mustCreateStock(t, ctx, godown.ID, "Rockets", 24, 20)

	if _, err := models.UpsertCatalogRate(ctx, &models.NewCatalogRate{
		ProductType: "Cracker", ProductName: "Sparklers", Brand: "Std", RatePerBox: d("100"),
	}); err != nil {
		t.Fatalf("UpsertCatalogRate: %v", err)
	}

	billDate := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	// --- create: catalog rate resolution, deduction, history, totals ---
	booking, err := svc.CreateBooking(ctx, &models.NewBooking{
		CustomerName: "Murugan Stores",
		Destination:  "Madurai",
		Route:        "South",
		BillDate:     billDate,
		Items: []models.NewBookingLineItem{
			{StockId: sparklers.ID, Cases: 4},
		},
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if booking.BillNumber != "B-1" {
		t.Fatalf("expected bill number B-1, got %s", booking.BillNumber)
	}
	if !booking.SubTotal.Equal(d("4800")) || !booking.GrandTotal.Equal(d("4800")) {
		t.Fatalf("expected 4800/4800, got %s/%s", booking.SubTotal, booking.GrandTotal)
	}
	if len(booking.Items) != 1 || booking.Items[0].PerCase != 12 || !booking.Items[0].RatePerBox.Equal(d("100")) {
		t.Fatalf("line snapshot wrong: %+v", booking.Items)
	}
	if _, err := os.Stat(booking.PdfPath); err != nil {
		t.Fatalf("bill document missing: %v", err)
	}

	after := fetchStock(t, ctx, sparklers.ID)
	if after.CurrentCases != 6 || after.TakenCases != 4 {
		t.Fatalf("expected 6/4 after booking, got %d/%d", after.CurrentCases, after.TakenCases)
	}
	if after.LastTakenDate == nil {
		t.Fatalf("last_taken_date not set")
	}

	entries, err := models.GetStockHistory(ctx, sparklers.ID)
	if err != nil {
		t.Fatalf("GetStockHistory: %v", err)
	}
	// newest first: the taken row precedes the opening row
	if entries[0].Action != models.StockActionTaken || entries[0].Cases != 4 || entries[0].PerCaseTotal != 48 {
		t.Fatalf("unexpected newest history row: %+v", entries[0])
	}
	if entries[0].CustomerName != "Murugan Stores" {
		t.Fatalf("deduction must record the customer, got %q", entries[0].CustomerName)
	}

	// --- atomic abort: second line fails, first line must not stick ---
	_, err = svc.CreateBooking(ctx, &models.NewBooking{
		CustomerName: "Overask",
		Destination:  "Salem",
		Route:        "West",
		BillDate:     billDate,
		Items: []models.NewBookingLineItem{
			{StockId: rockets.ID, Cases: 5, RatePerBox: d("50")},
			{StockId: sparklers.ID, Cases: 11, RatePerBox: d("100")},
		},
	})
	if !errors.Is(err, utils.ErrorInsufficientStock) {
		t.Fatalf("expected ErrorInsufficientStock, got %v", err)
	}
	if got := fetchStock(t, ctx, rockets.ID); got.CurrentCases != 20 || got.TakenCases != 0 {
		t.Fatalf("aborted booking leaked rockets deduction: %d/%d", got.CurrentCases, got.TakenCases)
	}
	if added, taken := historyNet(t, ctx, rockets.ID); added != 20 || taken != 0 {
		t.Fatalf("aborted booking leaked history: added=%d taken=%d", added, taken)
	}

	// --- edit: restore-then-reapply, bill number stable, new document ---
	oldPdf := booking.PdfPath
	updated, err := svc.UpdateBooking(ctx, booking.ID, &models.NewBooking{
		CustomerName: "Murugan Stores",
		Destination:  "Madurai",
		Route:        "South",
		BillDate:     billDate,
		Items: []models.NewBookingLineItem{
			{StockId: sparklers.ID, Cases: 2, RatePerBox: d("100")},
			{StockId: rockets.ID, Cases: 5, RatePerBox: d("50")},
		},
	})
	if err != nil {
		t.Fatalf("UpdateBooking: %v", err)
	}
	if updated.BillNumber != "B-1" {
		t.Fatalf("edit must keep the bill number, got %s", updated.BillNumber)
	}
	if updated.PdfPath == oldPdf {
		t.Fatalf("edit must regenerate the document under a new identity")
	}
	if got := fetchStock(t, ctx, sparklers.ID); got.CurrentCases != 8 || got.TakenCases != 2 {
		t.Fatalf("expected sparklers 8/2 after edit, got %d/%d", got.CurrentCases, got.TakenCases)
	}
	if got := fetchStock(t, ctx, rockets.ID); got.CurrentCases != 15 || got.TakenCases != 5 {
		t.Fatalf("expected rockets 15/5 after edit, got %d/%d", got.CurrentCases, got.TakenCases)
	}
	// sub total: 2*12*100 + 5*24*50 = 2400 + 6000
	if !updated.SubTotal.Equal(d("8400")) {
		t.Fatalf("expected sub total 8400, got %s", updated.SubTotal)
	}

	// --- delete: full round trip back to opening counts ---
	if err := svc.DeleteBooking(ctx, booking.ID); err != nil {
		t.Fatalf("DeleteBooking: %v", err)
	}
	if got := fetchStock(t, ctx, sparklers.ID); got.CurrentCases != 10 || got.TakenCases != 0 {
		t.Fatalf("expected sparklers restored to 10/0, got %d/%d", got.CurrentCases, got.TakenCases)
	}
	if got := fetchStock(t, ctx, rockets.ID); got.CurrentCases != 20 || got.TakenCases != 0 {
		t.Fatalf("expected rockets restored to 20/0, got %d/%d", got.CurrentCases, got.TakenCases)
	}
	if _, err := models.GetBooking(ctx, booking.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected deleted booking to be gone, got %v", err)
	}
	// conservation: opening 10 + edit restores - takes nets out to current 10
	added, taken := historyNet(t, ctx, sparklers.ID)
	if added-taken != 10 {
		t.Fatalf("history does not reconcile: added=%d taken=%d", added, taken)
	}

	// --- totals pipeline persisted on the bill record ---
	taxed, err := svc.CreateBooking(ctx, &models.NewBooking{
		CustomerName:              "Taxed Buyer",
		Destination:               "Chennai",
		BillDate:                  billDate,
		PackingEnabled:            true,
		PackingPercent:            d("3"),
		ExtraAmount:               d("56"),
		AdditionalDiscountPercent: d("2"),
		IgstEnabled:               true,
		Items: []models.NewBookingLineItem{
			{StockId: sparklers.ID, Cases: 4, RatePerBox: d("100")},
		},
	})
	if err != nil {
		t.Fatalf("CreateBooking (taxed): %v", err)
	}
	if !taxed.PackingAmount.Equal(d("144")) || !taxed.TaxAmount.Equal(d("882")) || !taxed.GrandTotal.Equal(d("5782")) {
		t.Fatalf("taxed totals wrong: packing=%s tax=%s grand=%s", taxed.PackingAmount, taxed.TaxAmount, taxed.GrandTotal)
	}
	var policy utils.TotalsPolicy
	if err := utils.UnmarshalFromJSON([]byte(taxed.Settings), &policy); err != nil || !policy.IgstEnabled {
		t.Fatalf("settings snapshot not persisted: %q err=%v", taxed.Settings, err)
	}
}

func TestConcurrentBookingsNeverOversell(t *testing.T) {
	svc := setupIntegrationEnv(t)
	ctx := context.Background()

	godown, err := models.CreateGodown(ctx, &models.NewGodown{Name: "Race Godown"})
	if err != nil {
		t.Fatalf("CreateGodown: %v", err)
	}
	flower := mustCreateStock(t, ctx, godown.ID, "Flower Pots", 10, 10)

	billDate := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	input := func(customer string) *models.NewBooking {
		return &models.NewBooking{
			CustomerName: customer,
			Destination:  "Trichy",
			Route:        "Central",
			BillDate:     billDate,
			Items: []models.NewBookingLineItem{
				{StockId: flower.ID, Cases: 7, RatePerBox: d("10")},
			},
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateBooking(ctx, input(fmt.Sprintf("Racer %d", i)))
		}(i)
	}
	wg.Wait()

	var okCount, insufficientCount int
	for _, err := range errs {
		switch {
		case err == nil:
			okCount++
		case errors.Is(err, utils.ErrorInsufficientStock):
			insufficientCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if okCount != 1 || insufficientCount != 1 {
		t.Fatalf("expected exactly one winner, got ok=%d insufficient=%d", okCount, insufficientCount)
	}
	if got := fetchStock(t, ctx, flower.ID); got.CurrentCases != 3 || got.TakenCases != 7 {
		t.Fatalf("expected 3/7 after the race, got %d/%d", got.CurrentCases, got.TakenCases)
	}
}

func TestConcurrentDeleteRestoresStockOnce(t *testing.T) {
	svc := setupIntegrationEnv(t)
	ctx := context.Background()

	godown, err := models.CreateGodown(ctx, &models.NewGodown{Name: "Double Delete Godown"})
	if err != nil {
		t.Fatalf("CreateGodown: %v", err)
	}
	pencil := mustCreateStock(t, ctx, godown.ID, "Pencil Crackers", 10, 12)

	booking, err := svc.CreateBooking(ctx, &models.NewBooking{
		CustomerName: "Fast Finger",
		Destination:  "Dindigul",
		Route:        "North",
		BillDate:     time.Date(2026, 8, 4, 0, 0, 0, 0, time.UTC),
		Items: []models.NewBookingLineItem{
			{StockId: pencil.ID, Cases: 4, RatePerBox: d("20")},
		},
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if got := fetchStock(t, ctx, pencil.ID); got.CurrentCases != 8 || got.TakenCases != 4 {
		t.Fatalf("expected 8/4 after booking, got %d/%d", got.CurrentCases, got.TakenCases)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.DeleteBooking(ctx, booking.ID)
		}(i)
	}
	wg.Wait()

	var okCount, notFoundCount int
	for _, err := range errs {
		switch {
		case err == nil:
			okCount++
		case errors.Is(err, utils.ErrorRecordNotFound):
			notFoundCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if okCount != 1 || notFoundCount != 1 {
		t.Fatalf("expected exactly one delete to win, got ok=%d notFound=%d", okCount, notFoundCount)
	}

	// the loser must not restore the same cases again
	if got := fetchStock(t, ctx, pencil.ID); got.CurrentCases != 12 || got.TakenCases != 0 {
		t.Fatalf("expected 12/0 after one delete, got %d/%d", got.CurrentCases, got.TakenCases)
	}
	if added, taken := historyNet(t, ctx, pencil.ID); added-taken != 12 {
		t.Fatalf("history does not reconcile: added=%d taken=%d", added, taken)
	}
}

func TestConcurrentBillNumbersAreUnique(t *testing.T) {
	svc := setupIntegrationEnv(t)
	ctx := context.Background()

	godown, err := models.CreateGodown(ctx, &models.NewGodown{Name: "Seq Godown"})
	if err != nil {
		t.Fatalf("CreateGodown: %v", err)
	}
	atom := mustCreateStock(t, ctx, godown.ID, "Atom Bombs", 6, 100)

	billDate := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)

	const n = 8
	var wg sync.WaitGroup
	bills := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := svc.CreateBooking(ctx, &models.NewBooking{
				CustomerName: fmt.Sprintf("Buyer %d", i),
				Destination:  "Karur",
				Route:        "West",
				BillDate:     billDate,
				Items: []models.NewBookingLineItem{
					{StockId: atom.ID, Cases: 1, RatePerBox: d("25")},
				},
			})
			if err != nil {
				t.Errorf("CreateBooking %d: %v", i, err)
				return
			}
			bills[i] = b.BillNumber
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, bill := range bills {
		if bill == "" {
			continue
		}
		if seen[bill] {
			t.Fatalf("duplicate bill number %s", bill)
		}
		seen[bill] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct bill numbers, got %d", n, len(seen))
	}
	if got := fetchStock(t, ctx, atom.ID); got.CurrentCases != 100-n {
		t.Fatalf("expected %d cases left, got %d", 100-n, got.CurrentCases)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("godown-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("godown-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=godown_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
