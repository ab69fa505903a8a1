package monitoring

import (
	"bytes"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRecordMember_CountsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(membersSimulated.WithLabelValues("test_strategy", "error"))

	RecordMember("test_strategy", time.Millisecond, errors.New("boom"))
	RecordMember("test_strategy", time.Millisecond, nil)

	assert.Equal(t, before+1, testutil.ToFloat64(membersSimulated.WithLabelValues("test_strategy", "error")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(membersSimulated.WithLabelValues("test_strategy", "ok")), 1.0)
}

func TestGauges(t *testing.T) {
	UpdatePickedMembers(3)
	UpdateEnsembleNetProfit(12.5)

	assert.Equal(t, 3.0, testutil.ToFloat64(pickedMembers))
	assert.Equal(t, 12.5, testutil.ToFloat64(ensembleNetProfit))
}

func TestMetricsHandler_ServesRegistry(t *testing.T) {
	RecordRebalance("picked")

	rec := httptest.NewRecorder()
	NewMetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "swarm_backtester_rebalances_total")
}

// TestServe_LogsListenError tests that a busy address is reported in the log
func TestServe_LogsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	out := &lockedBuffer{}
	srv := Serve(ln.Addr().String(), zerolog.New(out))
	defer srv.Close()

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "metrics server error")
	}, 2*time.Second, 10*time.Millisecond)
}

// TestServe_ClosedServerIsQuiet tests that a normal shutdown logs nothing
func TestServe_ClosedServerIsQuiet(t *testing.T) {
	out := &lockedBuffer{}
	srv := Serve("127.0.0.1:0", zerolog.New(out))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, srv.Close())
	time.Sleep(50 * time.Millisecond)

	assert.Empty(t, out.String())
}
