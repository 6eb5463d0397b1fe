package speaker

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/smartcast/internal/transport"
)

// InputService groups input selection
type InputService struct {
	s *Speaker
}

// List returns the display names of the selectable inputs in device order
func (in *InputService) List(ctx context.Context) ([]string, error) {
	body, err := in.s.transport.Do(ctx, http.MethodGet, EndpointInputs, nil)
	if err != nil {
		return nil, err
	}
	resp := body.Response()
	if resp == nil {
		_, err := transport.CheckResult("list inputs", body)
		return nil, err
	}

	names := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Name == currentInputName {
			continue
		}
		names = append(names, item.Name)
	}
	return names, nil
}

// Get returns the active input
func (in *InputService) Get(ctx context.Context) (string, error) {
	item, _, err := in.s.readItem(ctx, EndpointCurrentInput)
	if err != nil {
		return "", err
	}
	switch v := item.Value.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		return fmt.Sprint(v), nil
	}
}

// Set selects an input by display name or by its underlying value name,
// ignoring case. Both the input list and the current input are re-read first
// so the write carries a fresh HASHVAL.
func (in *InputService) Set(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", transport.NewInvalidArgumentError("input name is required")
	}

	listBody, err := in.s.transport.Do(ctx, http.MethodGet, EndpointInputs, nil)
	if err != nil {
		return "", err
	}
	currentBody, err := in.s.transport.Do(ctx, http.MethodGet, EndpointCurrentInput, nil)
	if err != nil {
		return "", err
	}
	if _, err := transport.CheckResult("list inputs", listBody); err != nil {
		return "", err
	}
	if _, err := transport.CheckResult("read current input", currentBody); err != nil {
		return "", err
	}

	var (
		match     string
		available []string
	)
	for _, item := range listBody.Response().Items {
		if item.Name == currentInputName {
			continue
		}
		available = append(available, item.Name)
		valueName, _ := item.ValueName()
		if strings.EqualFold(item.Name, name) || (valueName != "" && strings.EqualFold(valueName, name)) {
			match = item.Name
			break
		}
	}
	if match == "" {
		return "", transport.NewNotFoundError(fmt.Sprintf("input %q not found (available: %s)", name, strings.Join(available, ", ")))
	}

	current, ok := currentBody.Response().First()
	if !ok {
		return "", transport.NewNotFoundError("current input returned no items")
	}

	in.s.logger.Debug("Selecting input",
		zap.String("requested", name),
		zap.String("input", match),
	)
	return in.s.modify(ctx, EndpointCurrentInput, current.HashVal, match)
}
