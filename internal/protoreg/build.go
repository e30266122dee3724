// Package protoreg builds the protobuf descriptors of the script service at
// runtime. No generated code is involved: servers and clients exchange
// dynamicpb messages over these descriptors.
package protoreg

import (
	"strings"
	"sync"

	"github.com/jhump/protoreflect/v2/protobuilder"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const (
	FilePath    = "graphscript/v1/script.proto"
	Package     = "graphscript.v1"
	ServiceName = "ScriptService"
)

// Field names of the request and response messages.
const (
	FieldScript       protoreflect.Name = "script"
	FieldParamsJSON   protoreflect.Name = "params_json"
	FieldResultJSON   protoreflect.Name = "result_json"
	FieldErrorKind    protoreflect.Name = "error_kind"
	FieldErrorMessage protoreflect.Name = "error_message"
)

var defaultRegistry = sync.OnceValues(Build)

// Default returns the registry built once per process.
func Default() (*Registry, error) { return defaultRegistry() }

// Build constructs the service file descriptor.
func Build() (*Registry, error) {
	fb := protobuilder.NewFile(FilePath)
	fb.SetPackageName(Package)
	fb.SetSyntax(protoreflect.Proto3)

	req := protobuilder.NewMessage("ExecuteRequest")
	req.SetComments(comment("A script and its optional parameters."))
	req.AddField(stringField(FieldScript, 1, "Script source."))
	req.AddField(stringField(FieldParamsJSON, 2, "JSON object bound as script variables. May be empty."))

	resp := protobuilder.NewMessage("ExecuteResponse")
	resp.SetComments(comment("Exactly one of result_json and error_kind is set."))
	resp.AddField(stringField(FieldResultJSON, 1, "Compact JSON representation of the result."))
	resp.AddField(stringField(FieldErrorKind, 2, "Failure kind, e.g. EvaluationError."))
	resp.AddField(stringField(FieldErrorMessage, 3, ""))

	exec := protobuilder.NewMethod("Execute",
		protobuilder.RpcTypeMessage(req, false),
		protobuilder.RpcTypeMessage(resp, false),
	)
	exec.SetComments(comment("Execute runs a script in its own transaction."))

	sb := protobuilder.NewService(ServiceName)
	sb.SetComments(comment("ScriptService executes graph traversal scripts."))
	sb.AddMethod(exec)

	fb.AddMessage(req)
	fb.AddMessage(resp)
	fb.AddService(sb)

	fd, err := fb.Build()
	if err != nil {
		return nil, err
	}
	svc := fd.Services().ByName(ServiceName)
	return &Registry{
		file:    fd,
		service: svc,
		execute: svc.Methods().ByName("Execute"),
	}, nil
}

func stringField(name protoreflect.Name, num protoreflect.FieldNumber, doc string) *protobuilder.FieldBuilder {
	f := protobuilder.NewField(name, protobuilder.FieldTypeScalar(protoreflect.StringKind))
	f.SetNumber(num)
	f.SetComments(comment(doc))
	return f
}

// comment renders doc as a leading comment, one space after each "//".
func comment(doc string) protobuilder.Comments {
	if doc == "" {
		return protobuilder.Comments{}
	}
	return protobuilder.Comments{LeadingComment: " " + strings.ReplaceAll(doc, "\n", "\n ") + "\n"}
}
