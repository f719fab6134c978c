// Package remediate walks a machine from MAK activation to KMS activation:
// preflight, OS gate, Windows key and target reconciliation, Office key and
// target reconciliation, a best-effort activation trigger, and a verification
// re-query. Everything runs strictly in sequence; license mutations are
// order-dependent.
package remediate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opsdeploy/mak2kms/internal/config"
	"github.com/opsdeploy/mak2kms/internal/inventory"
	"github.com/opsdeploy/mak2kms/internal/model"
	"github.com/opsdeploy/mak2kms/internal/osgate"
	"github.com/opsdeploy/mak2kms/internal/ospp"
	"github.com/opsdeploy/mak2kms/internal/progress"
	"github.com/opsdeploy/mak2kms/internal/slmgr"
)

type windowsTool interface {
	Locate() error
	Status(ctx context.Context) (*model.ActivationStatus, error)
	InstallKey(ctx context.Context, key string) (int, error)
	SetKMSTarget(ctx context.Context, host, port string) (int, error)
	Activate(ctx context.Context) (int, error)
}

type officeTool interface {
	Detect(ctx context.Context) ([]model.ActivationStatus, error)
	UnpublishKey(ctx context.Context, last5 string) (int, error)
	PublishKey(ctx context.Context, key string) (int, error)
	SetKMSHost(ctx context.Context, host string) (int, error)
	SetKMSPort(ctx context.Context, port string) (int, error)
	Activate(ctx context.Context) (int, error)
}

// Remediator drives one remediation run.
type Remediator struct {
	cfg    *config.Config
	log    *zap.Logger
	notify *progress.Notifier

	win    windowsTool
	office officeTool

	checkOS       func(ctx context.Context) (*osgate.Info, error)
	findApp       func(prefix string) (*model.InstalledApp, error)
	rebootPending func() (bool, error)
}

func New(cfg *config.Config, log *zap.Logger, notify *progress.Notifier) *Remediator {
	return &Remediator{
		cfg:           cfg,
		log:           log,
		notify:        notify,
		win:           slmgr.NewEngine(cfg),
		office:        ospp.NewEngine(cfg),
		checkOS:       osgate.Check,
		findApp:       inventory.FindApp,
		rebootPending: inventory.RebootPending,
	}
}

// Run performs the full remediation. The returned result is never nil; on
// error it carries whatever was observed and done before the abort.
func (r *Remediator) Run(ctx context.Context) (*model.RemediationResult, error) {
	res := &model.RemediationResult{StartedAt: time.Now().UTC()}
	defer func() {
		finish := time.Now().UTC()
		res.FinishedAt = &finish
	}()

	r.notify.Step("Checking licensing tools")
	if err := r.win.Locate(); err != nil {
		return res, err
	}

	info, err := r.checkOS(ctx)
	if err != nil {
		if errors.Is(err, osgate.ErrUnsupported) {
			r.notify.Step("This operating system is not supported; nothing was changed")
			r.log.Warn("os gate rejected the machine", zap.Error(err))
		}
		return res, err
	}
	res.OSVersion = info.Version
	r.log.Info("os eligible",
		zap.String("platform", info.Platform),
		zap.String("version", info.Version))

	want := r.cfg.KMSTarget()

	r.notify.Step("Checking Windows activation")
	winChanged, err := r.reconcileWindows(ctx, info.ShortVersion, want, res)
	if err != nil {
		return res, err
	}

	officePresent, officeChanged, err := r.reconcileOffice(ctx, want, res)
	if err != nil {
		return res, err
	}

	res.Changed = winChanged || officeChanged
	// Only an Office-side change schedules the activation trigger; a
	// Windows-only change is picked up by the service's scheduled renewal.
	if officeChanged {
		r.notify.Step("Triggering activation")
		r.activate(ctx, res)
	} else if res.Changed {
		r.log.Info("windows licensing changed, activation left to the scheduled renewal")
	} else {
		r.log.Info("licensing already correct, no activation needed")
	}

	r.verify(ctx, officePresent, want, res)

	if pending, err := r.rebootPending(); err != nil {
		r.log.Warn("pending reboot check failed", zap.Error(err))
	} else if pending {
		res.RebootRequired = true
	}
	for _, a := range res.Actions {
		if a.ExitCode == 3010 {
			res.RebootRequired = true
		}
	}

	return res, nil
}

func (r *Remediator) reconcileWindows(ctx context.Context, shortVersion string, want model.KMSTarget, res *model.RemediationResult) (bool, error) {
	st, err := r.win.Status(ctx)
	if err != nil {
		return false, err
	}
	res.Before = append(res.Before, *st)

	changed := false
	if st.IsMAK {
		key, ok := r.cfg.WindowsKey(shortVersion)
		if !ok {
			r.log.Warn("mak key found but no kms client key is mapped for this os version",
				zap.String("version", shortVersion),
				zap.String("last5", st.Last5))
		} else {
			r.notify.Step("Replacing Windows MAK key")
			code, err := r.win.InstallKey(ctx, key)
			r.record(res, model.ActionInstallKey, model.ProductWindows, key, code, err)
			if err != nil {
				return false, err
			}
			changed = true
		}
	} else {
		r.log.Info("windows license is not MAK", zap.String("channel", st.Channel))
	}

	cur := model.ParseKMSTarget(st.KMSHost, r.cfg.KMSPort)
	if !cur.Equal(want) {
		r.notify.Step("Pointing Windows at %s", want.String())
		code, err := r.win.SetKMSTarget(ctx, want.Host, want.Port)
		r.record(res, model.ActionSetKMSTarget, model.ProductWindows, want.String(), code, err)
		if err != nil {
			return false, err
		}
		changed = true
	} else {
		r.log.Info("windows kms target already correct", zap.String("target", cur.String()))
	}
	return changed, nil
}

func (r *Remediator) reconcileOffice(ctx context.Context, want model.KMSTarget, res *model.RemediationResult) (present, changed bool, err error) {
	app, err := r.findApp(r.cfg.OfficeAppName)
	if err != nil {
		return false, false, fmt.Errorf("office inventory: %w", err)
	}
	if app == nil {
		r.log.Info("office 2013 not installed, skipping office pass")
		return false, false, nil
	}
	r.log.Info("office detected",
		zap.String("name", app.DisplayName),
		zap.String("version", app.DisplayVersion))

	r.notify.Step("Checking Office activation")
	statuses, err := r.office.Detect(ctx)
	if err != nil {
		return true, false, err
	}
	if len(statuses) == 0 {
		r.log.Info("no installed office licenses reported")
	}
	res.Before = append(res.Before, statuses...)

	for _, st := range statuses {
		stChanged, err := r.reconcileOfficeProduct(ctx, st, want, res)
		if err != nil {
			return true, false, err
		}
		changed = changed || stChanged
	}
	return true, changed, nil
}

func (r *Remediator) reconcileOfficeProduct(ctx context.Context, st model.ActivationStatus, want model.KMSTarget, res *model.RemediationResult) (bool, error) {
	changed := false
	if st.IsMAK {
		key, ok := r.cfg.OfficeKey(st.Product)
		if !ok {
			r.log.Warn("mak key found but no kms client key is mapped for this product",
				zap.String("product", string(st.Product)))
		} else {
			r.notify.Step("Replacing %s MAK key", st.Product)
			// remove the MAK before the new key lands; the order matters
			if st.Last5 == "" {
				r.log.Warn("mak key reported without its last5, skipping unpublish",
					zap.String("product", string(st.Product)))
			} else {
				code, err := r.office.UnpublishKey(ctx, st.Last5)
				r.record(res, model.ActionUnpublishKey, st.Product, st.Last5, code, err)
				if err != nil {
					return false, err
				}
			}
			code, err := r.office.PublishKey(ctx, key)
			r.record(res, model.ActionInstallKey, st.Product, key, code, err)
			if err != nil {
				return false, err
			}
			changed = true
		}
	} else {
		r.log.Info("office license is not MAK",
			zap.String("product", string(st.Product)),
			zap.String("channel", st.Channel))
	}

	cur := model.ParseKMSTarget(st.KMSHost, r.cfg.KMSPort)
	if !cur.Equal(want) {
		r.notify.Step("Pointing %s at %s", st.Product, want.String())
		code, err := r.office.SetKMSHost(ctx, want.Host)
		r.record(res, model.ActionSetKMSHost, st.Product, want.Host, code, err)
		if err != nil {
			return false, err
		}
		code, err = r.office.SetKMSPort(ctx, want.Port)
		r.record(res, model.ActionSetKMSPort, st.Product, want.Port, code, err)
		if err != nil {
			return false, err
		}
		changed = true
	} else {
		r.log.Info("office kms target already correct",
			zap.String("product", string(st.Product)),
			zap.String("target", cur.String()))
	}
	return changed, nil
}

// activate fires both activation triggers. Failures are logged and tolerated;
// activation is confirmed by the verification re-query, not by these calls.
// Callers only get here when an Office product changed, so Office is present.
func (r *Remediator) activate(ctx context.Context, res *model.RemediationResult) {
	code, err := r.win.Activate(ctx)
	r.record(res, model.ActionActivate, model.ProductWindows, "", code, err)
	if err != nil {
		r.log.Warn("windows activation trigger failed", zap.Error(err))
	}
	code, err = r.office.Activate(ctx)
	r.record(res, model.ActionActivate, model.ProductOffice, "", code, err)
	if err != nil {
		r.log.Warn("office activation trigger failed", zap.Error(err))
	}
}

// verify re-queries both subsystems and logs the final state. It never fails
// the run.
func (r *Remediator) verify(ctx context.Context, officePresent bool, want model.KMSTarget, res *model.RemediationResult) {
	if st, err := r.win.Status(ctx); err != nil {
		r.log.Warn("windows verification query failed", zap.Error(err))
	} else {
		res.After = append(res.After, *st)
		r.checkFinal(*st, want)
	}
	if !officePresent {
		return
	}
	if statuses, err := r.office.Detect(ctx); err != nil {
		r.log.Warn("office verification query failed", zap.Error(err))
	} else {
		res.After = append(res.After, statuses...)
		for _, st := range statuses {
			r.checkFinal(st, want)
		}
	}
}

func (r *Remediator) checkFinal(st model.ActivationStatus, want model.KMSTarget) {
	if st.IsMAK {
		r.log.Warn("product still reports a MAK key after remediation",
			zap.String("product", string(st.Product)),
			zap.String("last5", st.Last5))
		return
	}
	cur := model.ParseKMSTarget(st.KMSHost, r.cfg.KMSPort)
	if !cur.Equal(want) {
		r.log.Warn("kms target not confirmed after remediation",
			zap.String("product", string(st.Product)),
			zap.String("reported", st.KMSHost))
		return
	}
	r.log.Info("product verified on kms",
		zap.String("product", string(st.Product)),
		zap.String("target", cur.String()))
}

func (r *Remediator) record(res *model.RemediationResult, kind model.ActionKind, product model.Product, arg string, code int, err error) {
	a := model.Action{Kind: kind, Product: product, Argument: arg, ExitCode: code}
	fields := []zap.Field{
		zap.String("kind", string(kind)),
		zap.String("product", string(product)),
		zap.String("argument", arg),
		zap.Int("exit_code", code),
	}
	if err != nil {
		a.Error = err.Error()
		r.log.Error("licensing action failed", append(fields, zap.Error(err))...)
	} else {
		r.log.Info("licensing action applied", fields...)
	}
	res.Actions = append(res.Actions, a)
}
