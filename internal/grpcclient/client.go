// Package grpcclient provides a client for an out-of-process OCR gRPC server
package grpcclient

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/GriffinCanCode/encounter-tracker/internal/trace"
)

// RecognizeMethod takes PNG bytes (BytesValue) and answers with the text (StringValue).
const RecognizeMethod = "/ocr.Recognizer/Recognize"

// Client wraps the OCR service connection
type Client struct {
	conn *grpc.ClientConn
}

// New creates a new OCR client. Extra options are appended after the defaults.
func New(addr string, opts ...grpc.DialOption) (*Client, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    DefaultKeepaliveTime,
			Timeout: DefaultKeepaliveTimeout,
		}),
		grpc.WithUnaryInterceptor(trace.UnaryClientInterceptor()),
	}
	conn, err := grpc.NewClient(addr, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Close closes the gRPC connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Recognize performs OCR on a PNG image
func (c *Client) Recognize(ctx context.Context, png []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultCallTimeout)
	defer cancel()

	reply := &wrapperspb.StringValue{}
	if err := c.conn.Invoke(ctx, RecognizeMethod, wrapperspb.Bytes(png), reply); err != nil {
		return "", err
	}
	return reply.GetValue(), nil
}
