package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	opentracing "github.com/opentracing/opentracing-go"

	"github.com/trask/brave-agent/propagation"
	"github.com/trask/brave-agent/tracer"
)

type Carriers struct {
	TextMap map[string]string `json:"text_map"`

	HTTPHeaders map[string][]string `json:"http_headers,omitempty"`

	// Single is the value of a "b3" single header.
	Single string `json:"single,omitempty"`
}

func main() {
	t := tracer.New()

	var carriers Carriers
	if err := json.NewDecoder(os.Stdin).Decode(&carriers); err != nil {
		log.Println(carriers)
		fatal("could not read carriers from stdin: ", err)
	}

	spanContextTextMap, err := t.Extract(opentracing.TextMap, opentracing.TextMapCarrier(carriers.TextMap))
	if err != nil {
		fatal("could not extract text map context: ", err)
	}

	output := Carriers{
		TextMap: make(map[string]string),
	}

	err = t.Inject(spanContextTextMap, opentracing.TextMap, opentracing.TextMapCarrier(output.TextMap))
	if err != nil {
		fatal("could not inject text map context: ", err)
	}

	if carriers.HTTPHeaders != nil {
		spanContextHTTP, err := t.Extract(opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(carriers.HTTPHeaders))
		if err != nil {
			fatal("could not extract http headers context: ", err)
		}
		output.HTTPHeaders = make(map[string][]string)
		err = t.Inject(spanContextHTTP, opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(output.HTTPHeaders))
		if err != nil {
			fatal("could not inject http headers context: ", err)
		}
	}

	if carriers.Single != "" {
		extracted := propagation.Extract(map[string]string{"b3": carriers.Single}, propagation.TextMap)
		if extracted.Err != nil {
			fatal("could not extract single header context: ", extracted.Err)
		}
		single := make(map[string]string)
		propagation.InjectSingle(extracted.Context, single, propagation.TextMap)
		output.Single = single["b3"]
	}

	if err := json.NewEncoder(os.Stdout).Encode(output); err != nil {
		fatal("could not marshal json to stdout: ", err)
	}
	os.Exit(0)
}

func fatal(args ...interface{}) {
	fmt.Println(args...)
	os.Exit(1)
}
