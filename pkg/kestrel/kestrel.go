// Copyright 2024 The jackal Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kestrel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/ortuman/kestrel/pkg/acl"
	"github.com/ortuman/kestrel/pkg/auth"
	"github.com/ortuman/kestrel/pkg/c2s"
	"github.com/ortuman/kestrel/pkg/cluster/etcd"
	"github.com/ortuman/kestrel/pkg/cluster/locker"
	"github.com/ortuman/kestrel/pkg/hook"
	"github.com/ortuman/kestrel/pkg/host"
	"github.com/ortuman/kestrel/pkg/module"
	"github.com/ortuman/kestrel/pkg/module/offline"
	"github.com/ortuman/kestrel/pkg/router"
	"github.com/ortuman/kestrel/pkg/s2s"
	"github.com/ortuman/kestrel/pkg/shaper"
	"github.com/ortuman/kestrel/pkg/storage"
	"github.com/ortuman/kestrel/pkg/storage/repository"
	"github.com/ortuman/kestrel/pkg/version"
	"github.com/pkg/errors"
)

const (
	darwinOpenMax = 10240

	defaultBootstrapTimeout = time.Minute
	defaultShutdownTimeout  = time.Second * 30
)

type starter interface {
	Start(ctx context.Context) error
}

type stopper interface {
	Stop(ctx context.Context) error
}

type startStopper interface {
	starter
	stopper
}

// stopOnly adapts a component that needs no explicit start.
type stopOnly struct {
	stopper
}

func (s stopOnly) Start(_ context.Context) error { return nil }

// Kestrel is the root data structure for kestrel.
type Kestrel struct {
	cfg *Config

	hk          *hook.Hooks
	hosts       *host.Hosts
	access      *acl.Evaluator
	shapers     *shaper.Rules
	authBackend auth.Backend
	rep         repository.Repository
	locker      locker.Locker
	reg         *c2s.Registry
	router      *router.Router
	offline     *offline.Offline
	mods        *module.Modules
	s2sOut      *s2s.OutProvider
	wsHnd       *c2s.Listener

	starters []starter
	stoppers []stopper

	waitStopCh chan os.Signal

	logger kitlog.Logger
}

// New makes a new Kestrel.
func New(cfg *Config, logger kitlog.Logger) *Kestrel {
	return &Kestrel{
		cfg:        cfg,
		waitStopCh: make(chan os.Signal, 1),
		logger:     logger,
	}
}

// CheckConfig builds every kestrel component from cfg without starting any of them.
func CheckConfig(cfg *Config) error {
	return New(cfg, kitlog.NewNopLogger()).init()
}

// Run starts kestrel running, and blocks until a stop signal is received.
func (k *Kestrel) Run() error {
	level.Info(k.logger).Log("msg", "kestrel is starting...",
		"version", version.Version,
		"go_ver", runtime.Version(),
		"go_os", runtime.GOOS,
		"go_arch", runtime.GOARCH,
	)
	// set maximum opened files limit
	if err := setRLimit(); err != nil {
		return err
	}
	if k.cfg.Locker.Type == locker.EtcdType {
		if err := checkEtcdHealth(k.cfg.Locker.Etcd.Endpoints); err != nil {
			return err
		}
	}
	if err := k.init(); err != nil {
		return err
	}
	if err := k.bootstrap(); err != nil {
		return err
	}
	// ...wait for stop signal to shut down
	sig := k.waitForStopSignal()
	level.Info(k.logger).Log("msg", "received stop signal... shutting down...",
		"signal", sig.String(),
	)
	return k.shutdown()
}

func (k *Kestrel) init() error {
	k.hk = hook.NewHooks()

	if err := k.initHosts(k.cfg.Hosts); err != nil {
		return err
	}
	if err := k.initAccess(k.cfg.ACL, k.cfg.Shapers); err != nil {
		return err
	}
	if err := k.initAuth(k.cfg.Auth); err != nil {
		return err
	}
	if err := k.initRepository(k.cfg.Storage); err != nil {
		return err
	}
	if err := k.initLocker(k.cfg.Locker); err != nil {
		return err
	}
	k.initRouter(k.cfg.Router)
	k.initS2SOut(k.cfg.S2S.Out)

	if err := k.initModules(k.cfg.Modules); err != nil {
		return err
	}
	if err := k.initListeners(k.cfg.C2S.Listeners, k.cfg.S2S.Listeners); err != nil {
		return err
	}
	// init HTTP server
	var wsHnd http.Handler
	if k.wsHnd != nil {
		wsHnd = k.wsHnd
	}
	k.registerStartStopper(newHTTPServer(k.cfg.HTTP, wsHnd, k.logger))
	return nil
}

func (k *Kestrel) initHosts(configs []host.Config) error {
	h, err := host.NewHosts(configs)
	if err != nil {
		return errors.Wrap(err, "kestrel: failed to load hosts")
	}
	k.hosts = h
	return nil
}

func (k *Kestrel) initAccess(aclCfg acl.Config, shaperCfg shaper.Config) error {
	ev, err := acl.New(aclCfg)
	if err != nil {
		return errors.Wrap(err, "kestrel: invalid acl configuration")
	}
	k.access = ev

	rules, err := shaper.NewRules(shaperCfg, ev)
	if err != nil {
		return errors.Wrap(err, "kestrel: invalid shapers configuration")
	}
	k.shapers = rules

	for _, p := range shaperCfg.Profiles {
		level.Info(k.logger).Log("msg", "registered shaper profile",
			"name", p.Name,
			"rate", p.Rate,
			"burst", p.BurstSize,
			"unlimited", p.Unlimited,
		)
	}
	return nil
}

func (k *Kestrel) initAuth(cfg auth.StaticConfig) error {
	backend, err := auth.NewStatic(cfg)
	if err != nil {
		return errors.Wrap(err, "kestrel: invalid auth configuration")
	}
	k.authBackend = backend
	return nil
}

func (k *Kestrel) initRepository(cfg storage.Config) error {
	rep, err := storage.New(cfg, k.logger)
	if err != nil {
		return err
	}
	k.rep = rep
	k.registerStartStopper(k.rep)
	return nil
}

func (k *Kestrel) initLocker(cfg LockerConfig) error {
	switch cfg.Type {
	case locker.LocalType:
		k.locker = locker.NewLocal()
	case locker.EtcdType:
		k.locker = etcd.NewLocker(cfg.Etcd, k.logger)
	default:
		return fmt.Errorf("kestrel: unrecognized locker type: %s", cfg.Type)
	}
	k.registerStartStopper(k.locker)
	return nil
}

func (k *Kestrel) initRouter(cfg router.Config) {
	k.reg = c2s.NewRegistry(k.logger)
	k.registerStartStopper(stopOnly{k.reg})

	k.router = router.New(cfg, k.hosts, k.access, k.reg, k.logger)
}

func (k *Kestrel) initS2SOut(cfg s2s.OutConfig) {
	k.s2sOut = s2s.NewOutProvider(cfg, k.hosts, k.shapers, k.hk, k.logger)
	k.router.SetFederationLink(k.s2sOut)
	k.registerStartStopper(k.s2sOut)
}

func (k *Kestrel) initModules(cfg ModulesConfig) error {
	var mods []module.Module

	// enabled modules
	enabled := cfg.Enabled
	if len(enabled) == 0 {
		enabled = defaultModules
	}
	for _, mName := range enabled {
		fn, ok := modFns[mName]
		if !ok {
			return fmt.Errorf("kestrel: unrecognized module name: %s", mName)
		}
		mods = append(mods, fn(k, &cfg))
	}
	if k.offline != nil {
		k.router.SetOfflineQueue(k.offline)
	}
	k.mods = module.NewModules(mods, k.hosts, k.router, k.hk, k.logger)
	k.registerStartStopper(k.mods)
	return nil
}

func (k *Kestrel) initListeners(c2sListenersCfg c2s.ListenersConfig, s2sListenersCfg s2s.ListenersConfig) error {
	// c2s listeners
	for _, lnCfg := range c2sListenersCfg {
		ln := c2s.NewListener(
			lnCfg,
			k.hosts,
			k.authBackend,
			k.router,
			k.reg,
			k.mods,
			k.offline,
			k.access,
			k.shapers,
			k.hk,
			k.logger,
		)
		if ln.IsWebSocket() {
			if k.wsHnd != nil {
				return errors.New("kestrel: only one websocket C2S listener is allowed")
			}
			k.wsHnd = ln
		}
		k.registerStartStopper(ln)
	}

	// s2s listeners
	if len(s2sListenersCfg) > 0 {
		s2sInHub := s2s.NewInHub(k.logger)
		k.registerStartStopper(s2sInHub)

		s2sListeners := s2s.NewListeners(
			s2sListenersCfg,
			k.hosts,
			k.router,
			k.access,
			k.shapers,
			s2sInHub,
			k.hk,
			k.logger,
		)
		for _, ln := range s2sListeners {
			k.registerStartStopper(ln)
		}
	}
	return nil
}

func (k *Kestrel) registerStartStopper(ss startStopper) {
	if ss == nil {
		return
	}
	k.starters = append(k.starters, ss)
	k.stoppers = append([]stopper{ss}, k.stoppers...)
}

func (k *Kestrel) bootstrap() error {
	// spin up all service subsystems
	ctx, cancel := context.WithTimeout(context.Background(), defaultBootstrapTimeout)
	defer cancel()

	return runSequentially(ctx, len(k.starters), func(ctx context.Context, i int) error {
		return k.starters[i].Start(ctx)
	})
}

func (k *Kestrel) shutdown() error {
	// wait until shutdown has been completed
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	return runSequentially(ctx, len(k.stoppers), func(ctx context.Context, i int) error {
		return k.stoppers[i].Stop(ctx)
	})
}

func (k *Kestrel) waitForStopSignal() os.Signal {
	signal.Notify(k.waitStopCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	return <-k.waitStopCh
}

func runSequentially(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	errCh := make(chan error, 1)
	go func() {
		for i := 0; i < n; i++ {
			if err := fn(ctx, i); err != nil {
				errCh <- err
				return
			}
		}
		errCh <- nil
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func checkEtcdHealth(endpoints []string) error {
	type healthResponse struct {
		Health string `json:"health"`
	}

	var errHealthCheckFailedFn = func(err error) error {
		return fmt.Errorf("etcd health check failed: %v", err)
	}
	for _, endpoint := range endpoints {
		resp, err := http.Get(fmt.Sprintf("%s/health", endpoint))
		if err != nil {
			return errHealthCheckFailedFn(err)
		}
		var hResp healthResponse
		if err := json.NewDecoder(resp.Body).Decode(&hResp); err != nil {
			_ = resp.Body.Close()
			return errHealthCheckFailedFn(err)
		}
		_ = resp.Body.Close()

		healthy, _ := strconv.ParseBool(hResp.Health)
		if !healthy {
			return errHealthCheckFailedFn(fmt.Errorf("health = false, for endpoint %s", endpoint))
		}
	}
	return nil
}

func setRLimit() error {
	var rLim syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLim); err != nil {
		return err
	}
	if rLim.Cur < rLim.Max {
		switch runtime.GOOS {
		case "darwin":
			// The max file limit is 10240, even though
			// the max returned by Getrlimit is 1<<63-1.
			// This is OPEN_MAX in sys/syslimits.h.
			rLim.Cur = darwinOpenMax
		default:
			rLim.Cur = rLim.Max
		}
		return syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLim)
	}
	return nil
}
