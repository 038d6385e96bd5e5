package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bellapacxx/bingo-live/config"
	"github.com/bellapacxx/bingo-live/controllers"
	"github.com/bellapacxx/bingo-live/game"
	"github.com/bellapacxx/bingo-live/models"
	"github.com/bellapacxx/bingo-live/services"
	"github.com/bellapacxx/bingo-live/utils/auth"
)

type testApp struct {
	r  *gin.Engine
	db *gorm.DB
}

func setupRouterWithDB(t *testing.T) testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	// Use a per-test in-memory database to avoid cross-test interference
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := config.Connect(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)

	catalog := services.NewPatternCatalog(db, game.NewDefaultSource(), 4)
	numbers := services.NewNumberLedger(db, catalog)
	cards := services.NewCardService(db, numbers, catalog)
	h := controllers.New(db, auth.NewSigner("test-secret", time.Hour), services.NewUpgrader([]string{"*"}), controllers.Services{
		Economy:  services.NewEconomyLedger(db),
		Deposits: services.NewDepositService(db),
		Payments: services.NewPaymentService(db),
		Purchases: services.NewPurchaseService(db, services.NewMemoryLocker(), game.NewGenerator(11), services.PurchaseConfig{
			CardPrice: decimal.RequireFromString("1.50"),
			MaxCards:  10,
		}),
		Catalog: catalog,
		Numbers: numbers,
		Cards:   cards,
		Session: services.NewSession(db, services.NewHub(16), numbers, cards, catalog, game.NewGenerator(7)),
	})

	r := gin.New()
	SetupRoutes(r, h)
	return testApp{r: r, db: db}
}

func httpDo(r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// register signs a user up and returns its id and token. Roles are granted
// directly in the database, the way an operator would.
func (a testApp) register(t *testing.T, tid int64, name string, staff bool) (uint, string) {
	t.Helper()
	w := httpDo(a.r, "POST", "/api/users", "", gin.H{"telegram_id": tid, "name": name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[struct {
		User  models.User `json:"user"`
		Token string      `json:"token"`
	}](t, w)
	if staff {
		require.NoError(t, a.db.Model(&models.User{}).Where("id = ?", resp.User.ID).Update("is_staff", true).Error)
	}
	return resp.User.ID, resp.Token
}

func (a testApp) createEvent(t *testing.T, token string) uint {
	t.Helper()
	now := time.Now().UTC()
	w := httpDo(a.r, "POST", "/api/events", token, gin.H{
		"name":      "Friday night",
		"prize":     "500",
		"starts_at": now.Add(-time.Minute),
		"ends_at":   now.Add(time.Hour),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Event](t, w).ID
}

func TestRegisterAndProfile(t *testing.T) {
	a := setupRouterWithDB(t)

	id, token := a.register(t, 1001, "Abebe", false)
	require.NotEmpty(t, token)

	// registering again logs in
	w := httpDo(a.r, "POST", "/api/users", "", gin.H{"telegram_id": 1001, "name": "Abebe"})
	require.Equal(t, http.StatusOK, w.Code)

	w = httpDo(a.r, "GET", "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, id, decode[models.User](t, w).ID)

	w = httpDo(a.r, "GET", "/api/users/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = httpDo(a.r, "GET", "/api/users/me", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = httpDo(a.r, "PUT", "/api/users/me/phone", token, gin.H{"phone": "+251911000000"})
	require.Equal(t, http.StatusOK, w.Code)

	w = httpDo(a.r, "GET", "/api/users/me/balance", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	bal := decode[struct {
		Balance decimal.Decimal `json:"balance"`
	}](t, w)
	require.True(t, bal.Balance.IsZero())

	w = httpDo(a.r, "POST", "/api/users", "", gin.H{"name": "no id"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStaffRoutes(t *testing.T) {
	a := setupRouterWithDB(t)
	_, player := a.register(t, 1, "player", false)
	_, admin := a.register(t, 2, "admin", true)

	w := httpDo(a.r, "POST", "/api/events", player, gin.H{"name": "x"})
	require.Equal(t, http.StatusForbidden, w.Code)

	// roles are read fresh, so the token issued before promotion works
	eventID := a.createEvent(t, admin)

	w = httpDo(a.r, "GET", "/api/events/"+strconv.Itoa(int(eventID)), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[services.EventInfo](t, w)
	require.True(t, info.IsLive)
	require.Len(t, info.Patterns, len(game.DefaultPatterns()))

	w = httpDo(a.r, "GET", "/api/events/999", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	w = httpDo(a.r, "GET", "/api/events/abc", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDrawNumberRoute(t *testing.T) {
	a := setupRouterWithDB(t)
	_, player := a.register(t, 1, "player", false)
	_, admin := a.register(t, 2, "admin", true)
	eventID := a.createEvent(t, admin)
	path := "/api/events/" + strconv.Itoa(int(eventID)) + "/numbers"

	w := httpDo(a.r, "POST", path+"/draw", player, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = httpDo(a.r, "POST", path+"/draw", admin, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	drawn := decode[struct {
		Number int    `json:"number"`
		Label  string `json:"label"`
		Seq    int    `json:"seq"`
	}](t, w)
	require.Equal(t, 1, drawn.Seq)
	require.Equal(t, game.Label(drawn.Number), drawn.Label)

	w = httpDo(a.r, "GET", path, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	called := decode[[]models.CalledNumber](t, w)
	require.Len(t, called, 1)
	require.Equal(t, drawn.Number, called[0].Value)

	w = httpDo(a.r, "POST", "/api/events/999/numbers/draw", admin, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventPatternScoping(t *testing.T) {
	a := setupRouterWithDB(t)
	_, admin := a.register(t, 2, "admin", true)
	eventID := a.createEvent(t, admin)
	base := "/api/events/" + strconv.Itoa(int(eventID)) + "/patterns"

	w := httpDo(a.r, "PUT", base+"/allowed", admin, gin.H{"patterns": []string{"corners", "blackout", "row_1"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, decode[[]game.Pattern](t, w), 3)

	w = httpDo(a.r, "POST", base+"/disabled", admin, gin.H{"patterns": []string{"blackout"}})
	require.Equal(t, http.StatusOK, w.Code)
	names := []string{}
	for _, p := range decode[[]game.Pattern](t, w) {
		names = append(names, p.Name)
	}
	require.Equal(t, []string{"corners", "row_1"}, names)

	w = httpDo(a.r, "DELETE", base+"/disabled/blackout", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]game.Pattern](t, w), 3)

	w = httpDo(a.r, "POST", base+"/allowed", admin, gin.H{"patterns": []string{"no_such"}})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPatternRoutes(t *testing.T) {
	a := setupRouterWithDB(t)
	_, admin := a.register(t, 2, "admin", true)

	w := httpDo(a.r, "POST", "/api/patterns/validate", admin, gin.H{"positions": []int{24, 20, 4, 0}})
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = httpDo(a.r, "POST", "/api/patterns/validate", admin, gin.H{"positions": []int{0, 1}})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = httpDo(a.r, "POST", "/api/patterns/validate", admin, gin.H{"positions": []any{0, 1, "x", 3}})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = httpDo(a.r, "POST", "/api/patterns", admin, gin.H{"name": "Zig_Zag", "positions": []int{0, 6, 12, 8, 4}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Equal(t, "zig_zag", decode[models.Pattern](t, w).Name)

	w = httpDo(a.r, "GET", "/api/patterns/zig_zag", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[struct {
		PositionMap [5][5]bool `json:"position_map"`
		Visual      string     `json:"visual"`
	}](t, w)
	require.True(t, detail.PositionMap[1][1])
	require.Equal(t, 5, strings.Count(detail.Visual, "X"))

	w = httpDo(a.r, "POST", "/api/patterns/zig_zag/deactivate", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, decode[models.Pattern](t, w).IsActive)

	w = httpDo(a.r, "POST", "/api/patterns/nope/activate", admin, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGameFlow(t *testing.T) {
	a := setupRouterWithDB(t)
	_, player := a.register(t, 1, "player", false)
	_, admin := a.register(t, 2, "admin", true)
	eventID := a.createEvent(t, admin)
	ev := "/api/events/" + strconv.Itoa(int(eventID))

	// no money yet
	w := httpDo(a.r, "POST", ev+"/cards", player, gin.H{"quantity": 2})
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	// deposit, confirm and approval
	w = httpDo(a.r, "POST", "/api/deposits", player, gin.H{"amount": 10, "paymentMethod": "telebirr"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	dep := decode[models.Deposit](t, w)
	require.Len(t, dep.UniqueCode, 8)
	depPath := "/api/deposits/" + strconv.Itoa(int(dep.ID))

	w = httpDo(a.r, "POST", depPath+"/confirm", player, gin.H{"reference": "FT123"})
	require.Equal(t, http.StatusOK, w.Code)
	w = httpDo(a.r, "POST", depPath+"/approve", player, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	w = httpDo(a.r, "GET", "/api/deposits/pending", admin, nil)
	require.Len(t, decode[[]models.Deposit](t, w), 1)
	w = httpDo(a.r, "POST", depPath+"/approve", admin, gin.H{"notes": "ok"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = httpDo(a.r, "POST", depPath+"/approve", admin, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	// purchase two cards at 1.50
	w = httpDo(a.r, "POST", ev+"/cards", player, gin.H{"quantity": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	purchase := decode[struct {
		Balance decimal.Decimal `json:"balance"`
		Cards   []models.Card   `json:"cards"`
	}](t, w)
	require.True(t, decimal.RequireFromString("7").Equal(purchase.Balance))
	require.Len(t, purchase.Cards, 2)

	w = httpDo(a.r, "POST", ev+"/cards", player, gin.H{"quantity": 11})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = httpDo(a.r, "GET", ev+"/cards/mine", player, nil)
	require.Equal(t, http.StatusOK, w.Code)
	mine := decode[[]services.CardView](t, w)
	require.Len(t, mine, 2)
	card := mine[0]

	w = httpDo(a.r, "GET", "/api/purchases/mine?event_id="+strconv.Itoa(int(eventID)), player, nil)
	require.Equal(t, http.StatusOK, w.Code)
	purchases := decode[[]models.Purchase](t, w)
	require.Len(t, purchases, 1)
	require.Equal(t, 2, purchases[0].CardsOwned)
	w = httpDo(a.r, "GET", "/api/purchases/mine?event_id=x", player, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// staff call the first row of the first card
	for _, n := range card.Grid[0:5] {
		w = httpDo(a.r, "POST", ev+"/numbers", admin, gin.H{"number": n})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	w = httpDo(a.r, "POST", ev+"/numbers", admin, gin.H{"number": card.Grid[0]})
	require.Equal(t, http.StatusConflict, w.Code)
	w = httpDo(a.r, "POST", ev+"/numbers", admin, gin.H{"number": 76})
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = httpDo(a.r, "POST", ev+"/numbers", player, gin.H{"number": 3})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = httpDo(a.r, "GET", ev+"/numbers", "", nil)
	require.Len(t, decode[[]models.CalledNumber](t, w), 5)

	cardPath := "/api/cards/" + strconv.Itoa(int(card.ID))
	w = httpDo(a.r, "GET", cardPath+"/completed-by/"+strconv.Itoa(card.Grid[4]), admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	completed := decode[struct {
		Completed []game.MatchDetail `json:"completed"`
	}](t, w)
	require.Equal(t, "row_1", completed.Completed[0].PatternName)

	w = httpDo(a.r, "POST", ev+"/claims", player, gin.H{"card_id": card.ID, "pattern": "corners"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = httpDo(a.r, "POST", ev+"/claims", player, gin.H{"card_id": card.ID, "pattern": "row_1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	claim := decode[services.ClaimResult](t, w)
	require.True(t, claim.FirstWin)
	require.Equal(t, "row_1", claim.Match.PatternName)

	w = httpDo(a.r, "GET", cardPath+"/verify?pattern=row_1", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, decode[services.Verification](t, w).Won)

	w = httpDo(a.r, "GET", cardPath+"/status", player, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[services.CardStatus](t, w).Called, 5)

	_, other := a.register(t, 3, "other", false)
	w = httpDo(a.r, "GET", cardPath+"/status", other, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	w = httpDo(a.r, "POST", ev+"/claims", other, gin.H{"card_id": card.ID, "pattern": "row_1"})
	require.Equal(t, http.StatusForbidden, w.Code)

	// undo and reset
	w = httpDo(a.r, "DELETE", ev+"/numbers/last", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = httpDo(a.r, "DELETE", ev+"/numbers", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 4, decode[map[string]int](t, w)["removed"])

	// withdraw and history
	w = httpDo(a.r, "POST", "/api/withdraw", player, gin.H{"amount": "2.559", "method": "bank"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	withdrawn := decode[struct {
		Amount  decimal.Decimal `json:"amount"`
		Balance decimal.Decimal `json:"balance"`
	}](t, w)
	require.True(t, decimal.RequireFromString("2.55").Equal(withdrawn.Amount), withdrawn.Amount.String())
	require.Equal(t, "4.45", withdrawn.Balance.StringFixed(2))
	w = httpDo(a.r, "POST", "/api/withdraw", player, gin.H{"amount": "0.001"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = httpDo(a.r, "POST", "/api/withdraw", player, gin.H{"amount": 100})
	require.Equal(t, http.StatusConflict, w.Code)
	w = httpDo(a.r, "GET", "/api/users/me/transactions", player, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]models.Transaction](t, w), 3)
}

func TestSellerBatches(t *testing.T) {
	a := setupRouterWithDB(t)
	sellerID, seller := a.register(t, 5, "seller", false)
	_, admin := a.register(t, 2, "admin", true)
	eventID := a.createEvent(t, admin)
	ev := "/api/events/" + strconv.Itoa(int(eventID))

	w := httpDo(a.r, "GET", "/api/cards/batches", seller, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.NoError(t, a.db.Model(&models.User{}).Where("id = ?", sellerID).Update("is_seller", true).Error)

	for _, qty := range []int{2, 3} {
		w = httpDo(a.r, "POST", ev+"/cards/bulk", seller, gin.H{"quantity": qty})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = httpDo(a.r, "GET", "/api/cards/batches", seller, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	batches := decode[[]services.Batch](t, w)
	require.Len(t, batches, 2)
	require.Equal(t, 3, batches[0].Count)
	require.Len(t, batches[0].CardIDs, 3)
	require.Equal(t, 2, batches[1].Count)
	require.Equal(t, eventID, batches[1].EventID)

	w = httpDo(a.r, "GET", "/api/purchases/mine", seller, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 5, decode[[]models.Purchase](t, w)[0].CardsOwned)
}

func TestPaymentMethodsAndRates(t *testing.T) {
	a := setupRouterWithDB(t)
	_, player := a.register(t, 1, "player", false)
	_, admin := a.register(t, 2, "admin", true)

	w := httpDo(a.r, "POST", "/api/payment-methods", player, gin.H{"payment_method": "bank"})
	require.Equal(t, http.StatusForbidden, w.Code)
	w = httpDo(a.r, "POST", "/api/payment-methods", admin, gin.H{"payment_method": "bank", "details": "CBE 1000"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	bank := decode[models.PaymentMethod](t, w)

	w = httpDo(a.r, "GET", "/api/payment-methods", player, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]models.PaymentMethod](t, w), 1)

	w = httpDo(a.r, "POST", "/api/deposits", player, gin.H{"amount": 5, "paymentMethod": "cash"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = httpDo(a.r, "POST", "/api/deposits", player, gin.H{"amount": 5, "paymentMethod": "bank"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httpDo(a.r, "PATCH", "/api/payment-methods/"+strconv.Itoa(int(bank.ID)), admin, gin.H{"is_active": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = httpDo(a.r, "GET", "/api/payment-methods", player, nil)
	require.Empty(t, decode[[]models.PaymentMethod](t, w))
	w = httpDo(a.r, "GET", "/api/payment-methods/all", admin, nil)
	require.Len(t, decode[[]models.PaymentMethod](t, w), 1)
	w = httpDo(a.r, "DELETE", "/api/payment-methods/"+strconv.Itoa(int(bank.ID)), admin, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httpDo(a.r, "PUT", "/api/rates", player, gin.H{"rates": gin.H{"USD": "56.5"}})
	require.Equal(t, http.StatusForbidden, w.Code)
	w = httpDo(a.r, "PUT", "/api/rates", admin, gin.H{"rates": gin.H{"USD": "56.5"}, "description": "today"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = httpDo(a.r, "GET", "/api/rates", player, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rc := decode[models.RatesConfig](t, w)
	require.Equal(t, "today", rc.Description)
	require.JSONEq(t, `{"USD":"56.5"}`, string(rc.Rates))
}

func TestHouseCardsAndImport(t *testing.T) {
	a := setupRouterWithDB(t)
	_, admin := a.register(t, 2, "admin", true)
	eventID := a.createEvent(t, admin)
	ev := "/api/events/" + strconv.Itoa(int(eventID))

	w := httpDo(a.r, "POST", ev+"/cards/house", admin, gin.H{"quantity": 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	req := httptest.NewRequest("POST", ev+"/cards/import", strings.NewReader(`[[5,18,33,50,61,2,20,41,47,75,9,16,0,59,70,14,29,38,52,64,1,25,45,60,68], 42]`))
	req.Header.Set("Authorization", "Bearer "+admin)
	w = httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	report := decode[services.ImportReport](t, w)
	require.Len(t, report.Imported, 1)
	require.Len(t, report.Skipped, 1)

	w = httpDo(a.r, "GET", "/api/cards/price", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "1.5")
}

type wsFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f wsFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestEventWebSocket(t *testing.T) {
	a := setupRouterWithDB(t)
	_, player := a.register(t, 1, "player", false)
	_, admin := a.register(t, 2, "admin", true)
	eventID := a.createEvent(t, admin)

	srv := httptest.NewServer(a.r)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events/" + strconv.Itoa(int(eventID))

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token=bad", nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/events/999", nil)
	require.Error(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	watcher, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer watcher.Close()
	require.Equal(t, services.MsgEventInfo, readFrame(t, watcher).Type)

	playerConn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+player, nil)
	require.NoError(t, err)
	defer playerConn.Close()
	require.Equal(t, services.MsgEventInfo, readFrame(t, playerConn).Type)
	require.Equal(t, services.MsgUserCards, readFrame(t, playerConn).Type)

	staffConn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+admin, nil)
	require.NoError(t, err)
	defer staffConn.Close()
	readFrame(t, staffConn)
	readFrame(t, staffConn)

	// players cannot call numbers
	require.NoError(t, playerConn.WriteJSON(services.Inbound{Type: "call_number", Number: 7}))
	f := readFrame(t, playerConn)
	require.Equal(t, services.MsgError, f.Type)
	require.Contains(t, string(f.Data), "staff only")

	require.NoError(t, staffConn.WriteJSON(services.Inbound{Type: "call_number", Number: 7}))
	for _, c := range []*websocket.Conn{watcher, playerConn, staffConn} {
		f := readFrame(t, c)
		require.Equal(t, services.MsgNumberCalled, f.Type)
		var called services.NumberCalled
		require.NoError(t, json.Unmarshal(f.Data, &called))
		require.Equal(t, 7, called.Number)
		require.Equal(t, "B7", called.Label)
	}

	require.NoError(t, staffConn.WriteJSON(services.Inbound{Type: "draw_number"}))
	for _, c := range []*websocket.Conn{watcher, playerConn, staffConn} {
		f := readFrame(t, c)
		require.Equal(t, services.MsgNumberCalled, f.Type)
		var called services.NumberCalled
		require.NoError(t, json.Unmarshal(f.Data, &called))
		require.NotEqual(t, 7, called.Number)
		require.Equal(t, 2, called.TotalCalled)
	}

	// anonymous viewers watch but cannot talk
	require.NoError(t, watcher.WriteJSON(services.Inbound{Type: "chat_message", Message: "hi"}))
	require.Equal(t, services.MsgError, readFrame(t, watcher).Type)

	require.NoError(t, playerConn.WriteJSON(services.Inbound{Type: "chat_message", Message: "good luck"}))
	f = readFrame(t, watcher)
	require.Equal(t, services.MsgChat, f.Type)
	require.Contains(t, string(f.Data), "good luck")
}
