package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	m := New()

	m.Logins.WithLabelValues(ResultOK).Inc()
	m.Logins.WithLabelValues(ResultFailed).Add(2)
	m.MailQueued.Set(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logins.WithLabelValues(ResultOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Logins.WithLabelValues(ResultFailed)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.MailQueued))

	families, err := m.Registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["gophid_logins_total"])
	assert.True(t, names["gophid_mail_queue_length"])
	assert.True(t, names["go_goroutines"])
}

func TestNew_Independent(t *testing.T) {
	a, b := New(), New()
	a.Registrations.WithLabelValues(ResultOK).Inc()

	assert.Equal(t, 0.0, testutil.ToFloat64(b.Registrations.WithLabelValues(ResultOK)))
}

func TestResult(t *testing.T) {
	assert.Equal(t, ResultOK, Result(nil))
	assert.Equal(t, ResultFailed, Result(errors.New("x")))
}

func TestObserve(t *testing.T) {
	m := New()
	m.ObserveRegistration(nil)
	m.ObserveVerification(errors.New("x"))
	m.ObserveLogin(nil)
	m.ObserveAvatarUpload(errors.New("x"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Registrations.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Verifications.WithLabelValues(ResultFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logins.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AvatarUploads.WithLabelValues(ResultFailed)))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() {
		nilMetrics.ObserveRegistration(nil)
		nilMetrics.ObserveVerification(nil)
		nilMetrics.ObserveLogin(nil)
		nilMetrics.ObserveAvatarUpload(nil)
	})
}
