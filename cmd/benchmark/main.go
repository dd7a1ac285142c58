package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"sync"
	"time"

	agent "github.com/trask/brave-agent"
	"github.com/trask/brave-agent/collector"
	"github.com/trask/brave-agent/propagation"
	"github.com/trask/brave-agent/tracer"
)

const (
	controlPath           = "/control"
	resultPath            = "/result"
	controllerPort        = 8000
	grpcPort              = 8001
	controllerHost        = "localhost"
	controllerAccessToken = "ignored"
)

func fatal(x ...interface{}) {
	panic(fmt.Sprintln(x...))
}

type control struct {
	Concurrent int // How many goroutines

	// How much work to perform under one transaction
	Work int64

	// How many repetitions
	Repeat int64

	// How many amortized nanoseconds to sleep after each transaction
	Sleep time.Duration
	// How many nanoseconds to sleep at once
	SleepInterval time.Duration

	// Outgoing calls made inside each transaction
	Outgoing int64
	// Hand the work off to an auxiliary goroutine and complete the
	// transaction asynchronously
	Aux bool

	// Misc control bits
	Trace bool // Trace the operation.
	Exit  bool // Terminate the test.
}

type testClient struct {
	baseURL string
	agent   *agent.Agent
	tracer  *tracer.Tracer
}

func work(n int64) int64 {
	const primeWork = 982451653
	x := int64(primeWork)
	for n != 0 {
		x *= primeWork
		n--
	}
	return x
}

func (t *testClient) getURL(path string) []byte {
	resp, err := http.Get(t.baseURL + path)
	if err != nil {
		fatal("Bench control request failed: ", err)
	}
	if resp.StatusCode != 200 {
		fatal("Bench control status != 200: ", resp.Status, ": ", path)
	}

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fatal("Bench error reading body: ", err)
	}
	return body
}

func (t *testClient) loop() {
	for {
		body := t.getURL(controlPath)

		ctrl := control{}
		if err := json.Unmarshal(body, &ctrl); err != nil {
			fatal("Bench control parse error: ", err)
		}
		if ctrl.Exit {
			return
		}
		timing, flusht, sleeps, answer := t.run(&ctrl)
		t.getURL(fmt.Sprintf(
			"%s?timing=%.9f&flush=%.9f&s=%.9f&a=%d",
			resultPath,
			timing.Seconds(),
			flusht.Seconds(),
			sleeps.Seconds(),
			answer))
	}
}

// transaction runs one unit of work inside an incoming span and returns its
// answer.
func (t *testClient) transaction(control *control) int64 {
	if !control.Trace {
		return work(control.Work)
	}

	holder := agent.NewHolder()
	span := agent.StartIncomingSpan(t.agent, "Benchmark", "span/test", propagation.TextMap, map[string]string{},
		agent.Message("span/test"), "benchmark", holder, 0, 0)
	tc := holder.Get()

	body := func(tc *agent.ThreadContext) int64 {
		answer := work(control.Work)
		for i := int64(0); i < control.Outgoing; i++ {
			carrier := map[string]string{}
			agent.StartOutgoingSpan(tc, "HTTP", "GET /downstream", propagation.TextMap, carrier,
				agent.Message("GET /downstream"), "http client request").End()
		}
		return answer
	}

	if !control.Aux {
		answer := body(tc)
		span.End()
		return answer
	}

	aux := tc.CreateAuxThreadContext()
	tc.SetTransactionAsync()
	span.End()

	result := make(chan int64, 1)
	go func() {
		auxHolder := agent.NewHolder()
		auxSpan := aux.StartAndMarkAsyncComplete(auxHolder)
		result <- body(auxHolder.Get())
		auxSpan.End()
	}()
	return <-result
}

func (t *testClient) testBody(control *control) (time.Duration, int64) {
	var sleepDebt time.Duration
	var answer int64
	var totalSleep time.Duration
	for i := int64(0); i < control.Repeat; i++ {
		answer = t.transaction(control)
		sleepDebt += control.Sleep
		if sleepDebt <= control.SleepInterval {
			continue
		}
		begin := time.Now()
		time.Sleep(sleepDebt)
		elapsed := time.Since(begin)
		sleepDebt -= elapsed
		totalSleep += elapsed
	}
	return totalSleep, answer
}

func (t *testClient) run(control *control) (time.Duration, time.Duration, time.Duration, int64) {
	conc := control.Concurrent
	runtime.GOMAXPROCS(conc)
	runtime.GC()
	runtime.Gosched()

	var (
		mu     sync.Mutex
		sleeps time.Duration
		answer int64
	)

	beginTest := time.Now()
	if conc == 1 {
		s, a := t.testBody(control)
		sleeps += s
		answer += a
	} else {
		start := &sync.WaitGroup{}
		finish := &sync.WaitGroup{}
		start.Add(conc)
		finish.Add(conc)
		for c := 0; c < conc; c++ {
			go func() {
				start.Done()
				start.Wait()
				s, a := t.testBody(control)
				mu.Lock()
				sleeps += s
				answer += a
				mu.Unlock()
				finish.Done()
			}()
		}
		finish.Wait()
	}
	endTime := time.Now()
	flushDur := time.Duration(0)
	if control.Trace {
		t.tracer.Flush(context.Background())
		flushDur = time.Since(endTime)
	}
	return endTime.Sub(beginTest), flushDur, sleeps, answer
}

func main() {
	flag.Parse()

	reporter, err := collector.NewGRPCReporter(fmt.Sprint(controllerHost, ":", grpcPort),
		collector.WithAccessToken(controllerAccessToken),
		collector.WithComponentName("benchmark"),
	)
	if err != nil {
		fatal("Bench could not dial collector: ", err)
	}
	recorder, err := tracer.NewBufferedRecorder(reporter)
	if err != nil {
		fatal("Bench could not start recorder: ", err)
	}
	t := tracer.New(tracer.WithRecorder(recorder), tracer.WithLocalServiceName("benchmark"))
	a, err := agent.New(t)
	if err != nil {
		fatal("Bench could not start agent: ", err)
	}

	tc := &testClient{
		baseURL: fmt.Sprint("http://",
			controllerHost, ":",
			controllerPort),
		agent:  a,
		tracer: t,
	}
	tc.loop()
	t.Close(context.Background())
	reporter.Close()
}
