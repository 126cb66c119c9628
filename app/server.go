package app

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lotterykit/lottery/chainclient"
	"github.com/lotterykit/lottery/pkg/logger"
	"github.com/lotterykit/lottery/pkg/units"
)

//go:embed templates/index.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

const shutdownTimeout = 5 * time.Second

// Server serves the lottery page, its JSON API, metrics and a health check.
type Server struct {
	session *Session
	chain   Chain
	lggr    logger.Logger
	router  *httprouter.Router
}

// NewServer routes the page and API to session. Metrics are served from gatherer.
func NewServer(session *Session, chain Chain, lggr logger.Logger, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		session: session,
		chain:   chain,
		lggr:    lggr.Named("server"),
		router:  httprouter.New(),
	}

	s.router.GET("/", s.handlePage)
	s.router.POST("/enter", s.handleEnterForm)
	s.router.POST("/pick-winner", s.handlePickForm)
	s.router.GET("/api/state", s.handleState)
	s.router.POST("/api/enter", s.handleEnterAPI)
	s.router.POST("/api/pick-winner", s.handlePickAPI)
	s.router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	s.router.GET("/healthz", s.handleHealth)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: time.Minute,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.lggr.Infow("Lottery UI started", "addr", ln.Addr().String(), "chain", s.chain.ChainName())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// stateView is State as rendered by the page and the JSON API.
type stateView struct {
	Chain       string      `json:"chain"`
	Contract    string      `json:"contract"`
	Manager     string      `json:"manager"`
	Players     []string    `json:"players"`
	PlayerCount int         `json:"playerCount"`
	Balance     string      `json:"balance"`
	BalanceWei  string      `json:"balanceWei"`
	Value       string      `json:"value"`
	Message     string      `json:"message"`
	Status      Status      `json:"status"`
	Pending     Action      `json:"pending,omitempty"`
	LastAction  *resultView `json:"lastAction,omitempty"`
	Accounts    []string    `json:"accounts,omitempty"`
}

type resultView struct {
	ID     string                `json:"id"`
	Action Action                `json:"action"`
	TxHash string                `json:"txHash,omitempty"`
	Kind   chainclient.ErrorKind `json:"kind"`
	Error  string                `json:"error,omitempty"`
}

type actionRequest struct {
	Value string `json:"value"`
	From  string `json:"from"`
}

type actionResponse struct {
	Result resultView `json:"result"`
	State  stateView  `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) view(st State) stateView {
	v := stateView{
		Chain:       s.chain.ChainName(),
		Contract:    s.session.lottery.Address().Hex(),
		Players:     make([]string, 0, len(st.Players)),
		PlayerCount: len(st.Players),
		Balance:     "0",
		BalanceWei:  "0",
		Value:       st.Value,
		Message:     st.Message,
		Status:      st.Status,
		Pending:     st.Pending,
	}
	if st.Manager != (common.Address{}) {
		v.Manager = st.Manager.Hex()
	}
	for _, p := range st.Players {
		v.Players = append(v.Players, p.Hex())
	}
	if st.Balance != nil {
		v.BalanceWei = st.Balance.String()
		if eth, err := s.chain.FromWei(st.Balance, units.Ether); err == nil {
			v.Balance = eth
		}
	}
	if st.LastAction.Action != ActionNone {
		rv := newResultView(st.LastAction)
		v.LastAction = &rv
	}

	return v
}

func newResultView(r Result) resultView {
	rv := resultView{ID: r.ID.String(), Action: r.Action, Kind: r.Kind}
	if r.TxHash != (common.Hash{}) {
		rv.TxHash = r.TxHash.Hex()
	}
	if r.Err != nil {
		rv.Error = r.Err.Error()
	}

	return rv
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	st, _ := s.session.Mount(r.Context())
	v := s.view(st)

	if accounts, err := s.chain.Accounts(r.Context()); err == nil {
		for _, a := range accounts {
			v.Accounts = append(v.Accounts, a.Hex())
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, v); err != nil {
		s.lggr.Errorw("Failed to render page", "err", err)
	}
}

func (s *Server) handleEnterForm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	from, err := parseFrom(r.PostForm.Get("from"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := s.session.EnterAmount(r.Context(), from, r.PostForm.Get("value")); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handlePickForm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	from, err := parseFrom(r.PostForm.Get("from"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := s.session.PickWinner(r.Context(), from); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	st, err := s.session.Mount(r.Context())
	status := http.StatusOK
	if err != nil {
		status = statusForKind(chainclient.KindOf(err))
	}

	s.writeJSON(w, status, s.view(st))
}

func (s *Server) handleEnterAPI(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, from, ok := s.decodeAction(w, r)
	if !ok {
		return
	}

	result, err := s.session.EnterAmount(r.Context(), from, req.Value)
	s.writeAction(w, result, err)
}

func (s *Server) handlePickAPI(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	_, from, ok := s.decodeAction(w, r)
	if !ok {
		return
	}

	result, err := s.session.PickWinner(r.Context(), from)
	s.writeAction(w, result, err)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if _, err := s.chain.Accounts(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeAction reads an optional JSON body. It writes the error response itself.
func (s *Server) decodeAction(w http.ResponseWriter, r *http.Request) (actionRequest, common.Address, bool) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return req, common.Address{}, false
	}

	from, err := parseFrom(req.From)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return req, common.Address{}, false
	}

	return req, from, true
}

func (s *Server) writeAction(w http.ResponseWriter, result Result, err error) {
	if errors.Is(err, ErrBusy) {
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}

	s.writeJSON(w, statusForKind(result.Kind), actionResponse{
		Result: newResultView(result),
		State:  s.view(s.session.State()),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.lggr.Errorw("Failed to write response", "err", err)
	}
}

func statusForKind(k chainclient.ErrorKind) int {
	switch k {
	case chainclient.KindNone:
		return http.StatusOK
	case chainclient.KindValidation:
		return http.StatusBadRequest
	case chainclient.KindRejected:
		return http.StatusUnprocessableEntity
	case chainclient.KindConnection:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// parseFrom parses an optional sender address. An empty string is the zero address, which the
// session resolves to the first local account.
func parseFrom(s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("from: %q is not a valid address", s)
	}

	return common.HexToAddress(s), nil
}
