// Package agentoc hands spans finished by the agent to OpenCensus exporters.
//
// NOTE: This package is currently experimental. Breaking changes may occur, independent of version.
//
//     func Example() {
//         reporter := agentoc.NewReporter(agentoc.WithExporter(exporter))
//         recorder, err := tracer.NewBufferedRecorder(reporter)
//         if err != nil {
//             log.Fatal(err)
//         }
//         defer recorder.Close(context.Background())
//
//         t := tracer.New(tracer.WithRecorder(recorder))
//     }
package agentoc
