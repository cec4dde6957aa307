// internal/authflow/sequencer_test.go
package authflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vmaturana/corfex-cli/internal/dom"
	"github.com/vmaturana/corfex-cli/internal/dom/domtest"
	"github.com/vmaturana/corfex-cli/internal/interact"
)

const loginFixture = `<html><head><title>Login</title></head><body>
<a id="mostrarCorfoLoginLink" href="#">Iniciar sesión Corfo</a>
<div id="loginForm" style="display: none">
	<input id="rut" type="text" name="rut"/>
	<input id="pass" type="password" name="pass"/>
	<button id="ingresa_">Ingresar</button>
</div>
</body></html>`

const homeWithNewApplication = `<html><head><title>Inicio</title></head><body>
<span id="nueva" class="btn btn-primary btn-xs">Nueva Postulación</span>
</body></html>`

const homeWithStepBar = `<html><head><title>Postulación</title></head><body>
<div id="BarraPasosContenedor">
	<span id="paso1" class="BotonPaso">1</span>
	<span id="paso2" class="BotonPaso activo">2</span>
</div>
</body></html>`

const homeWithoutAffordances = `<html><head><title>Inicio</title></head><body>
<p>Bienvenido</p>
</body></html>`

func newTestSequencer(page *domtest.Page, timeout time.Duration) *Sequencer {
	s := New(page, interact.New(page, zap.NewNop()), Config{
		URL:             "https://login.example.test/entry",
		WaitTimeout:     timeout,
		PostLoginSettle: 10 * time.Second,
	}, zap.NewNop())
	// Settle delays collapse to nothing so the test is not wall-clock bound.
	s.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return s
}

// wireLogin scripts the fixture page: the reveal link shows the credential
// form, and submitting swaps the document for the given post-login markup.
func wireLogin(page *domtest.Page, postLogin string) {
	page.OnClick["mostrarCorfoLoginLink"] = func(p *domtest.Page) {
		p.SetAttr("loginForm", "style", "display: block")
	}
	page.OnClick["ingresa_"] = func(p *domtest.Page) {
		p.SetHTML(postLogin)
		p.SetLocation("https://platform.example.test/home")
		p.SetTitle("Inicio")
	}
}

func TestRunFullSequenceViaNewApplication(t *testing.T) {
	page := domtest.NewPage(loginFixture)
	wireLogin(page, homeWithNewApplication)
	s := newTestSequencer(page, 2*time.Second)

	// Capture typed credentials before the submit click discards the form.
	var typedRUT, typedClave string
	page.OnClick["ingresa_"] = func(p *domtest.Page) {
		ctx := context.Background()
		rut, err := p.Find(ctx, dom.CSS("#rut"))
		require.NoError(t, err)
		typedRUT, _, _ = rut.Attr(ctx, "value")
		clave, err := p.Find(ctx, dom.CSS("#pass"))
		require.NoError(t, err)
		typedClave, _, _ = clave.Attr(ctx, "value")

		p.SetHTML(homeWithNewApplication)
		p.SetLocation("https://platform.example.test/home")
	}

	err := s.Run(context.Background(), Credentials{RUT: "11111111-1", Clave: "secreta"})
	require.NoError(t, err)

	assert.Equal(t, "11111111-1", typedRUT)
	assert.Equal(t, "secreta", typedClave)

	location, err := page.Location(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://platform.example.test/home", location)

	var clicked []string
	for _, c := range page.Clicks {
		clicked = append(clicked, c.ID)
	}
	assert.Equal(t, []string{"mostrarCorfoLoginLink", "ingresa_", "nueva"}, clicked)
}

func TestRunRoutesViaActiveStepButton(t *testing.T) {
	page := domtest.NewPage(loginFixture)
	wireLogin(page, homeWithStepBar)
	s := newTestSequencer(page, 2*time.Second)

	err := s.Run(context.Background(), Credentials{RUT: "1-9", Clave: "x"})
	require.NoError(t, err)

	last := page.Clicks[len(page.Clicks)-1]
	assert.Equal(t, "paso2", last.ID)
}

func TestRunRoutesViaFirstStepWhenNoneActive(t *testing.T) {
	page := domtest.NewPage(loginFixture)
	wireLogin(page, `<html><body>
<div id="BarraPasosContenedor"><span id="paso1" class="BotonPaso">1</span></div>
</body></html>`)
	s := newTestSequencer(page, 2*time.Second)

	err := s.Run(context.Background(), Credentials{RUT: "1-9", Clave: "x"})
	require.NoError(t, err)

	last := page.Clicks[len(page.Clicks)-1]
	assert.Equal(t, "paso1", last.ID)
}

func TestRunMissingRoutingAffordanceIsNotFatal(t *testing.T) {
	page := domtest.NewPage(loginFixture)
	wireLogin(page, homeWithoutAffordances)
	s := newTestSequencer(page, 200*time.Millisecond)

	err := s.Run(context.Background(), Credentials{RUT: "1-9", Clave: "x"})
	require.NoError(t, err)

	var clicked []string
	for _, c := range page.Clicks {
		clicked = append(clicked, c.ID)
	}
	assert.Equal(t, []string{"mostrarCorfoLoginLink", "ingresa_"}, clicked)
}

func TestRunRoutingActivationFailureIsNotFatal(t *testing.T) {
	page := domtest.NewPage(loginFixture)
	wireLogin(page, homeWithNewApplication)
	page.FailClicks["nueva"] = []domtest.ClickMode{
		domtest.ClickDirect, domtest.ClickMove, domtest.ClickScript,
	}
	s := newTestSequencer(page, 2*time.Second)

	err := s.Run(context.Background(), Credentials{RUT: "1-9", Clave: "x"})
	require.NoError(t, err, "a routing element refusing every click must not fail the sequence")
}

func TestRunStepButtonActivationFailureIsNotFatal(t *testing.T) {
	page := domtest.NewPage(loginFixture)
	wireLogin(page, homeWithStepBar)
	page.FailClicks["paso2"] = []domtest.ClickMode{
		domtest.ClickDirect, domtest.ClickMove, domtest.ClickScript,
	}
	s := newTestSequencer(page, 2*time.Second)

	err := s.Run(context.Background(), Credentials{RUT: "1-9", Clave: "x"})
	require.NoError(t, err)
}

func TestRunMissingCredentialFieldIsNavigationTimeout(t *testing.T) {
	// The reveal link exists but clicking it never produces the form.
	page := domtest.NewPage(`<html><body><a id="mostrarCorfoLoginLink" href="#">Login</a></body></html>`)
	s := newTestSequencer(page, 200*time.Millisecond)

	err := s.Run(context.Background(), Credentials{RUT: "1-9", Clave: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNavigationTimeout)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepFillCredentials, stepErr.Step)
}

func TestRunMissingRevealLinkIsNavigationTimeout(t *testing.T) {
	page := domtest.NewPage(`<html><body><p>maintenance</p></body></html>`)
	s := newTestSequencer(page, 200*time.Millisecond)

	err := s.Run(context.Background(), Credentials{RUT: "1-9", Clave: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNavigationTimeout)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepRevealLoginForm, stepErr.Step)
}

func TestRunSubmitUsesHandlerFallbackWhenClicksFail(t *testing.T) {
	page := domtest.NewPage(loginFixture)
	page.OnClick["mostrarCorfoLoginLink"] = func(p *domtest.Page) {
		p.SetAttr("loginForm", "style", "display: block")
	}
	page.FailClicks["ingresa_"] = []domtest.ClickMode{
		domtest.ClickDirect, domtest.ClickMove, domtest.ClickScript,
	}
	page.EvalFunc = func(script string, out any) error {
		page.SetHTML(homeWithNewApplication)
		page.SetLocation("https://platform.example.test/home")
		return nil
	}
	s := newTestSequencer(page, 2*time.Second)

	err := s.Run(context.Background(), Credentials{RUT: "1-9", Clave: "x"})
	require.NoError(t, err)

	require.NotEmpty(t, page.Evals)
	assert.Contains(t, page.Evals[0], "validaIngreso")
}
