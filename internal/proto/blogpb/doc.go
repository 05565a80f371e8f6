// Package blogpb holds the protobuf messages and gRPC stubs of
// blog.BlogService, generated from proto/blog.proto.
package blogpb

//go:generate protoc -I ../../../proto --go_out=. --go_opt=paths=source_relative --go-grpc_out=. --go-grpc_opt=paths=source_relative blog.proto
