package protoreg

import (
	"fmt"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Registry holds the built descriptors.
type Registry struct {
	file    protoreflect.FileDescriptor
	service protoreflect.ServiceDescriptor
	execute protoreflect.MethodDescriptor
}

func (r *Registry) File() protoreflect.FileDescriptor       { return r.file }
func (r *Registry) Service() protoreflect.ServiceDescriptor { return r.service }
func (r *Registry) Execute() protoreflect.MethodDescriptor  { return r.execute }

// FullMethod returns the gRPC path of md, e.g. "/graphscript.v1.ScriptService/Execute".
func FullMethod(md protoreflect.MethodDescriptor) string {
	return fmt.Sprintf("/%s/%s", md.Parent().FullName(), md.Name())
}

// ExecuteRequest is a script submission.
type ExecuteRequest struct {
	Script     string
	ParamsJSON string
}

// ExecuteResponse carries either ResultJSON or an error kind and message.
type ExecuteResponse struct {
	ResultJSON   string
	ErrorKind    string
	ErrorMessage string
}

// NewRequest builds a dynamic ExecuteRequest message.
func (r *Registry) NewRequest(in ExecuteRequest) *dynamicpb.Message {
	m := dynamicpb.NewMessage(r.execute.Input())
	setString(m, FieldScript, in.Script)
	setString(m, FieldParamsJSON, in.ParamsJSON)
	return m
}

// NewResponse builds a dynamic ExecuteResponse message.
func (r *Registry) NewResponse(out ExecuteResponse) *dynamicpb.Message {
	m := dynamicpb.NewMessage(r.execute.Output())
	setString(m, FieldResultJSON, out.ResultJSON)
	setString(m, FieldErrorKind, out.ErrorKind)
	setString(m, FieldErrorMessage, out.ErrorMessage)
	return m
}

// ReadRequest extracts the fields of an ExecuteRequest message.
func ReadRequest(m protoreflect.Message) ExecuteRequest {
	return ExecuteRequest{
		Script:     getString(m, FieldScript),
		ParamsJSON: getString(m, FieldParamsJSON),
	}
}

// ReadResponse extracts the fields of an ExecuteResponse message.
func ReadResponse(m protoreflect.Message) ExecuteResponse {
	return ExecuteResponse{
		ResultJSON:   getString(m, FieldResultJSON),
		ErrorKind:    getString(m, FieldErrorKind),
		ErrorMessage: getString(m, FieldErrorMessage),
	}
}

func setString(m protoreflect.Message, name protoreflect.Name, v string) {
	if v == "" {
		return
	}
	m.Set(m.Descriptor().Fields().ByName(name), protoreflect.ValueOfString(v))
}

func getString(m protoreflect.Message, name protoreflect.Name) string {
	fd := m.Descriptor().Fields().ByName(name)
	if fd == nil {
		return ""
	}
	return m.Get(fd).String()
}
