// Package monitoring turns a running simulation into a web server that can be
// inspected and stepped from a browser.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/sarchlab/routesim/monitoring/web"
	"github.com/sarchlab/routesim/sim"
	"github.com/sarchlab/routesim/sim/hooking"
	"github.com/sarchlab/routesim/sim/id"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Inspectable is a simulation that the monitor can look into. All the methods
// must be safe to call while the simulation runs.
type Inspectable interface {
	Now() uint64
	Stats() sim.Stats
	RouterIDs() []sim.Address
	Links() [][2]sim.Address
	Pending() []hooking.PendingTask

	// InspectRouter calls fn with the router and its routing algorithm while
	// the simulation is not ticking. It returns false if the router is
	// unknown.
	InspectRouter(
		id sim.Address,
		fn func(r sim.Router, alg sim.RoutingAlgorithm),
	) bool

	// Step advances the simulation by n ticks.
	Step(n int)
}

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	simulation  Inspectable
	portNumber  int
	openBrowser bool
	log         *slog.Logger
	idGen       id.Generator
	clock       func() time.Time
	dashboard   *web.Dashboard

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		log:   slog.Default(),
		idGen: id.NewPrefixedGenerator("bar"),
		clock: time.Now,
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		m.log.Warn("reserved monitor port, using a random port instead",
			"port", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes the monitor open the dashboard in a browser once the
// server starts.
func (m *Monitor) WithBrowser() *Monitor {
	m.openBrowser = true
	return m
}

// WithDashboard sets the page served at the root. Without it the server
// picks the dashboard from the environment.
func (m *Monitor) WithDashboard(d *web.Dashboard) *Monitor {
	m.dashboard = d
	return m
}

// WithLogger sets the logger of the monitor.
func (m *Monitor) WithLogger(logger *slog.Logger) *Monitor {
	m.log = logger
	return m
}

// RegisterSimulation registers the simulation to monitor.
func (m *Monitor) RegisterSimulation(s Inspectable) {
	m.simulation = s
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		id:    m.idGen.Generate(),
		name:  name,
		start: m.clock(),
		clock: m.clock,
		total: total,
		phase: PhaseTraffic,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

func (m *Monitor) router() *mux.Router {
	r := mux.NewRouter()

	dashboard := m.dashboard
	if dashboard == nil {
		dashboard = web.Embedded()
	}

	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/stats", m.stats)
	r.HandleFunc("/api/routers", m.listRouters)
	r.HandleFunc("/api/router/{id}", m.routerDetails)
	r.HandleFunc("/api/topology", m.topology)
	r.HandleFunc("/api/pending", m.pending)
	r.HandleFunc("/api/step/{n}", m.step).Methods(http.MethodPost)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(dashboard.Handler())

	return r
}

// StartServer starts the monitor as a web server and returns the address it
// listens on.
func (m *Monitor) StartServer() (string, error) {
	if m.dashboard == nil {
		dashboard, err := web.FromEnv()
		if err != nil {
			return "", err
		}

		if dashboard.Dir() != "" {
			m.log.Info("serving dashboard from disk", "dir", dashboard.Dir())
		}

		m.dashboard = dashboard
	}

	listener, err := net.Listen("tcp", m.listenAddr())
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	r := m.router()

	go func() {
		err := http.Serve(listener, r)
		dieOnErr(err)
	}()

	if m.openBrowser {
		err = browser.OpenURL(url)
		if err != nil {
			m.log.Warn("cannot open browser", "url", url, "error", err)
		}
	}

	return listener.Addr().String(), nil
}

// listenAddr returns the address to listen on. Port 0 lets the system pick.
func (m *Monitor) listenAddr() string {
	return ":" + strconv.Itoa(m.portNumber)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(w, "{\"now\":%d}", m.simulation.Now())
}

func (m *Monitor) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.simulation.Stats())
}

func (m *Monitor) listRouters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.simulation.RouterIDs())
}

func (m *Monitor) routerDetails(w http.ResponseWriter, r *http.Request) {
	routerID := sim.Address(mux.Vars(r)["id"])

	found := m.simulation.InspectRouter(routerID,
		func(_ sim.Router, alg sim.RoutingAlgorithm) {
			serializer := goseth.NewSerializer()
			serializer.SetRoot(alg)
			serializer.SetMaxDepth(1)
			err := serializer.Serialize(w)

			dieOnErr(err)
		})

	if !found {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Router not found"))
		dieOnErr(err)
	}
}

type linkRsp struct {
	A sim.Address `json:"a"`
	B sim.Address `json:"b"`
}

type topologyRsp struct {
	Routers []sim.Address `json:"routers"`
	Links   []linkRsp     `json:"links"`
}

func (m *Monitor) topology(w http.ResponseWriter, _ *http.Request) {
	rsp := topologyRsp{
		Routers: m.simulation.RouterIDs(),
		Links:   []linkRsp{},
	}

	for _, l := range m.simulation.Links() {
		rsp.Links = append(rsp.Links, linkRsp{A: l[0], B: l[1]})
	}

	writeJSON(w, rsp)
}

func (m *Monitor) pending(w http.ResponseWriter, r *http.Request) {
	tasks := m.simulation.Pending()

	limitStr := r.URL.Query().Get("limit")
	if limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "Error: invalid limit %q", limitStr)

			return
		}

		if limit < len(tasks) {
			tasks = tasks[:limit]
		}
	}

	if tasks == nil {
		tasks = []hooking.PendingTask{}
	}

	writeJSON(w, tasks)
}

func (m *Monitor) step(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(mux.Vars(r)["n"])
	if err != nil || n <= 0 {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: invalid number of ticks %q", mux.Vars(r)["n"])

		return
	}

	m.simulation.Step(n)

	m.now(w, r)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]Progress, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	writeJSON(w, rsp)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
