package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	errspkg "github.com/drblury/topicflow/internal/runtime/errors"
	"github.com/drblury/topicflow/internal/runtime/jsoncodec"
	"github.com/drblury/topicflow/internal/runtime/registry"
	"github.com/drblury/topicflow/internal/runtime/schema"
)

func newEncodeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "encode <tag> [field=value...]",
		Short: "Encode field values into a topic and payload",
		Long: `Encode builds a message of the given shape from field=value pairs and
prints its concrete topic on the first line and its payload on the second.

Topic fields are written the way they appear in a topic layer. The payload
field is written in its codec's format.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := opts.loadShapes()
			if err != nil {
				return err
			}
			msg, err := buildMessage(reg, args[0], args[1:])
			if err != nil {
				return err
			}
			t, data, err := reg.Encode(msg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, t.String())
			fmt.Fprintln(out, string(data))
			return nil
		},
	}
}

func newDecodeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <topic> [payload|-]",
		Short: "Decode a topic and payload into field values",
		Long: `Decode finds the shape that accepts the topic and payload and prints its
tag and fields as JSON. A payload of "-" is read from stdin.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := opts.loadShapes()
			if err != nil {
				return err
			}
			var data []byte
			if len(args) == 2 {
				data = []byte(args[1])
				if args[1] == "-" {
					if data, err = io.ReadAll(cmd.InOrStdin()); err != nil {
						return fmt.Errorf("read payload: %w", err)
					}
				}
			}
			msg, err := reg.DecodeString(args[0], data)
			if err != nil {
				return err
			}
			out, err := jsoncodec.MarshalIndent(map[string]any{
				"shape":  msg.Tag,
				"fields": msg.Fields,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

// buildMessage parses field=value pairs into a message of shape tag.
func buildMessage(reg *registry.Registry[*schema.Message], tag string, pairs []string) (*schema.Message, error) {
	shape, ok := reg.Lookup(tag)
	if !ok {
		return nil, &errspkg.UnknownShapeError{Type: tag}
	}
	text := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("field %q must be written as name=value", pair)
		}
		text[name] = value
	}
	v, err := shape.FromText(text)
	if err != nil {
		return nil, err
	}
	msg, ok := v.(*schema.Message)
	if !ok {
		return nil, fmt.Errorf("shape %s built %T", tag, v)
	}
	return msg, nil
}
