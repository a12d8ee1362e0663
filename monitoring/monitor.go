package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/aqclab/ventana/monitoring/web"
	"github.com/aqclab/ventana/rtio"
)

// A ChunkUpdate is the published summary of one completed chunk.
type ChunkUpdate struct {
	Chunk         int       `json:"chunk"`
	Attempts      int       `json:"attempts"`
	Detections    int       `json:"detections"`
	FollowUps     int       `json:"follow_ups"`
	Recoveries    int       `json:"recoveries"`
	CoolingCycles int       `json:"cooling_cycles"`
	BigCycles     int       `json:"big_cycles"`
	CompletedAt   time.Time `json:"completed_at"`
}

// Monitor turns a running acquisition into a small web server that the lab
// dashboards poll.
type Monitor struct {
	core        rtio.Core
	targetNames []string
	targets     map[string]interface{}
	portNumber  int
	port        int

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	chunksLock sync.Mutex
	chunks     []ChunkUpdate
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		targets: make(map[string]interface{}),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterCore registers the core whose counter the /api/now endpoint
// reports.
func (m *Monitor) RegisterCore(c rtio.Core) {
	m.core = c
}

// RegisterTarget registers a named object for state inspection. Register
// targets before StartServer; the map is not guarded.
func (m *Monitor) RegisterTarget(name string, target interface{}) {
	if _, ok := m.targets[name]; !ok {
		m.targetNames = append(m.targetNames, name)
	}
	m.targets[name] = target
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		id:        xid.New().String(),
		name:      name,
		startTime: time.Now(),
		total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the webpage.
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

// PublishChunk appends one completed chunk summary to the feed.
func (m *Monitor) PublishChunk(u ChunkUpdate) {
	m.chunksLock.Lock()
	defer m.chunksLock.Unlock()

	m.chunks = append(m.chunks, u)
}

// Port returns the port the server listens on. It is zero before
// StartServer.
func (m *Monitor) Port() int {
	return m.port
}

// StartServer starts the monitor as a web server, on a random port unless
// one was set.
func (m *Monitor) StartServer() {
	r := m.buildRouter()
	http.Handle("/", r)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	m.port = listener.Addr().(*net.TCPAddr).Port

	fmt.Fprintf(os.Stderr,
		"Monitoring run with http://localhost:%d\n", m.port)

	go func() {
		err = http.Serve(listener, nil)
		dieOnErr(err)
	}()
}

func (m *Monitor) buildRouter() *mux.Router {
	r := mux.NewRouter()

	fServer := http.FileServer(web.GetAssets())
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/chunks", m.listChunks)
	r.HandleFunc("/api/targets", m.listTargets)
	r.HandleFunc("/api/state/{name}", m.targetState)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(fServer)

	return r
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	nowMu := m.core.CounterMu()
	fmt.Fprintf(w, "{\"now_mu\":%d,\"now_sec\":%.9f}",
		int64(nowMu), nowMu.Duration().Seconds())
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	snapshots := make([]progressSnapshot, len(m.progressBars))
	for i, b := range m.progressBars {
		snapshots[i] = b.snapshot()
	}
	m.progressBarsLock.Unlock()

	bytes, err := json.Marshal(snapshots)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) listChunks(w http.ResponseWriter, _ *http.Request) {
	m.chunksLock.Lock()
	chunks := make([]ChunkUpdate, len(m.chunks))
	copy(chunks, m.chunks)
	m.chunksLock.Unlock()

	bytes, err := json.Marshal(chunks)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) listTargets(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, "[")
	for i, name := range m.targetNames {
		if i > 0 {
			fmt.Fprint(w, ",")
		}

		fmt.Fprintf(w, "%q", name)
	}
	fmt.Fprint(w, "]")
}

func (m *Monitor) targetState(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	target, ok := m.targets[name]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Target not found"))
		dieOnErr(err)
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(target)
	serializer.SetMaxDepth(1)

	if field := r.URL.Query().Get("field"); field != "" {
		err := serializer.SetEntryPoint(strings.Split(field, "."))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "Error: %s", err)
			return
		}
	}

	err := serializer.Serialize(w)
	dieOnErr(err)
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

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	bytes, err := json.Marshal(prof)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
