package main

import (
	"fmt"
	"time"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/go-logr/logr"

	"github.com/richard-devbot/chaoshunter/internal/config"
	"github.com/richard-devbot/chaoshunter/internal/lease"
	"github.com/richard-devbot/chaoshunter/internal/logging"
	"github.com/richard-devbot/chaoshunter/internal/notify"
	"github.com/richard-devbot/chaoshunter/internal/tracing"
	"github.com/richard-devbot/chaoshunter/pkg/compiler"
	"github.com/richard-devbot/chaoshunter/pkg/cycle"
	"github.com/richard-devbot/chaoshunter/pkg/experimentrunner"
	"github.com/richard-devbot/chaoshunter/pkg/faultscenario"
	"github.com/richard-devbot/chaoshunter/pkg/fsstore"
	"github.com/richard-devbot/chaoshunter/pkg/improver"
	"github.com/richard-devbot/chaoshunter/pkg/inspection"
	"github.com/richard-devbot/chaoshunter/pkg/k8sadapter"
	"github.com/richard-devbot/chaoshunter/pkg/llmgateway"
	"github.com/richard-devbot/chaoshunter/pkg/preprocess"
	"github.com/richard-devbot/chaoshunter/pkg/steadystate"
)

// clusterClients bundles the three handles k8sadapter.New needs: a
// controller-runtime client for typed/unstructured CRUD, a raw clientset
// for pod subresources, and the rest.Config both are built from.
func clusterClients() (client.Client, kubernetes.Interface, *rest.Config, error) {
	restCfg, err := clientcmd.BuildConfigFromFlags("", getKubeconfigPath())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("building kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("building clientset: %w", err)
	}

	scheme, err := k8sadapter.NewScheme()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("building client scheme: %w", err)
	}
	c, err := client.New(restCfg, client.Options{Scheme: scheme})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("building controller-runtime client: %w", err)
	}

	return c, clientset, restCfg, nil
}

// components bundles every engine collaborator the run command
// constructs; only the caller decides what to do with the assembled
// Engine.
type components struct {
	Cfg     config.Config
	Log     logr.Logger
	Store   *fsstore.Store
	Adapter *k8sadapter.Adapter
	Gateway *llmgateway.Gateway
	Tracer  *tracing.Tracer
	Notify  *notify.Notifier
	Lease   *lease.Manager
}

func wire(workDir string) (*components, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	level := "info"
	if verbose {
		level = "debug"
	}
	log, err := logging.New(logging.Options{Level: level})
	if err != nil {
		return nil, err
	}

	store, err := fsstore.New(workDir)
	if err != nil {
		return nil, err
	}

	c, clientset, restCfg, err := clusterClients()
	if err != nil {
		return nil, err
	}
	adapter := k8sadapter.New(c, clientset, restCfg, cfg.Namespace)

	gw, err := llmgateway.New(cfg.LLM, log)
	if err != nil {
		return nil, fmt.Errorf("building LLM gateway: %w", err)
	}

	var leaseMgr *lease.Manager
	if cfg.Redis.Addr != "" {
		leaseMgr = lease.New(cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.TTL)
	}

	return &components{
		Cfg:     cfg,
		Log:     log,
		Store:   store,
		Adapter: adapter,
		Gateway: gw,
		Tracer:  tracing.New(workDir),
		Notify:  notify.New(cfg.SlackWebhookURL, log),
		Lease:   leaseMgr,
	}, nil
}

// engineOverrides carries flag-level values that take precedence over
// whatever internal/config loaded, so a one-off invocation never requires
// editing the config file.
type engineOverrides struct {
	CleanBefore bool
	CleanAfter  bool
}

// buildEngine assembles C12 from c, wiring every component per spec.md's
// ownership boundaries. The Cluster Adapter, LLM Gateway, and File Store
// are shared across every component that needs them; the rest are
// narrowed to the interface each package declares for itself.
func buildEngine(c *components, ov engineOverrides) *cycle.Engine {
	steadyStateOracle := llmgateway.SteadyStateOracle{Gateway: c.Gateway}
	improverOracle := llmgateway.ImproverOracle{Gateway: c.Gateway}

	inspectionRunner := &inspection.Runner{
		Cluster: c.Adapter,
		Opts: inspection.Options{
			Namespace:    c.Cfg.Namespace,
			ProjectName:  c.Cfg.ProjectName,
			Image:        c.Cfg.ProbeImage,
			PollInterval: secondsToDuration(c.Cfg.CheckIntervalSec),
			Timeout:      secondsToDuration(c.Cfg.InspectionTimeoutSec),
		},
	}

	steadyStateBuilder := &steadystate.Builder{
		Gateway:            steadyStateOracle,
		Validator:          inspectionRunner,
		MaxRetries:         c.Cfg.MaxRetries,
		MaxNumSteadyStates: c.Cfg.MaxNumSteadyStates,
	}

	faultBuilder := &faultscenario.Builder{
		Gateway:    c.Gateway,
		Cluster:    c.Adapter,
		MaxRetries: c.Cfg.MaxRetries,
	}

	compilerImpl := &compiler.Compiler{
		Opts: compiler.Options{
			Namespace:      c.Cfg.Namespace,
			ProjectName:    c.Cfg.ProjectName,
			Image:          c.Cfg.ProbeImage,
			DeadlineMargin: c.Cfg.DeadlineMarginSec,
		},
	}

	runner := &experimentrunner.Runner{
		Cluster: k8sadapter.ExperimentRunnerCluster{Adapter: c.Adapter},
		Opts: experimentrunner.Options{
			Namespace:     c.Cfg.Namespace,
			ProjectName:   c.Cfg.ProjectName,
			CheckInterval: secondsToDuration(c.Cfg.CheckIntervalSec),
			Deadline:      secondsToDuration(c.Cfg.DeadlineMarginSec),
		},
	}

	improverBuilder := &improver.Builder{
		Gateway: improverOracle,
		Store:   c.Store,
		Deployer: improver.ExecDeployer{
			Command: c.Cfg.DeployCommand,
			Args:    c.Cfg.DeployArgs,
			Log:     c.Log,
		},
		Opts: improver.Options{
			Namespace:   c.Cfg.Namespace,
			ProjectName: c.Cfg.ProjectName,
			MaxRetries:  c.Cfg.MaxRetries,
		},
	}

	preprocessor := &preprocess.Preprocessor{
		Gateway: c.Gateway,
		Store:   c.Store,
	}

	engine := &cycle.Engine{
		Preprocessor:  preprocessor,
		SteadyState:   steadyStateBuilder,
		FaultScenario: faultBuilder,
		Gateway:       c.Gateway,
		Compiler:      compilerImpl,
		Runner:        runner,
		Improver:      improverBuilder,
		Store:         c.Store,
		Cluster:       c.Adapter,
		Tracer:        c.Tracer,
		Opts: cycle.Options{
			Namespace:      c.Cfg.Namespace,
			ProjectName:    c.Cfg.ProjectName,
			MaxRetries:     c.Cfg.MaxRetries,
			DeadlineMargin: c.Cfg.DeadlineMarginSec,
			CleanBefore:    ov.CleanBefore || c.Cfg.CleanBefore,
			CleanAfter:     ov.CleanAfter || c.Cfg.CleanAfter,
		},
	}
	engine.OnComplete = c.Notify.Notify
	return engine
}

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}
