package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/meikuraledutech/diagram"
	"github.com/meikuraledutech/diagram/command"
)

func (s *Server) createSchema(c fiber.Ctx) error {
	if err := s.cfg.Store.CreateSchema(c.Context()); err != nil {
		return s.internal(c, err)
	}
	return c.JSON(fiber.Map{"message": "schema created"})
}

func (s *Server) dropSchema(c fiber.Ctx) error {
	if err := s.cfg.Store.DropSchema(c.Context()); err != nil {
		return s.internal(c, err)
	}
	s.sessions.reset()
	return c.JSON(fiber.Map{"message": "schema dropped"})
}

func (s *Server) createDiagram(c fiber.Ctx) error {
	var g diagram.Graph
	if err := c.Bind().JSON(&g); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	if g.RuleSet != "" {
		if _, ok := s.cfg.RuleSets[g.RuleSet]; !ok {
			return c.Status(422).JSON(fiber.Map{"error": "unknown rule-set"})
		}
	}
	result, err := s.cfg.Store.CreateDiagram(c.Context(), &g)
	if errors.Is(err, diagram.ErrNodeNotFound) {
		return c.Status(422).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return s.internal(c, err)
	}
	s.sessions.forget(result.ID)
	return c.Status(201).JSON(result)
}

func (s *Server) getDiagram(c fiber.Ctx) error {
	g, err := s.cfg.Store.GetDiagram(c.Context(), c.Params("id"))
	if err != nil {
		return s.internal(c, err)
	}
	if g == nil {
		return c.Status(404).JSON(fiber.Map{"error": "diagram not found"})
	}
	return c.JSON(g)
}

func (s *Server) deleteDiagram(c fiber.Ctx) error {
	id := c.Params("id")
	if err := s.cfg.Store.DeleteDiagram(c.Context(), id); err != nil {
		return s.internal(c, err)
	}
	s.sessions.forget(id)
	return c.SendStatus(204)
}

// connectRequest is the body of the source and target routes. An absent
// magnet leaves it untouched; an explicit null clears it.
type connectRequest struct {
	NodeID string          `json:"node_id"`
	Magnet json.RawMessage `json:"magnet,omitempty"`
	DryRun bool            `json:"dry_run"`
}

func (r connectRequest) options() ([]command.Option, error) {
	if len(r.Magnet) == 0 {
		return nil, nil
	}
	if string(r.Magnet) == "null" {
		return []command.Option{command.WithMagnet(nil)}, nil
	}
	var m diagram.Magnet
	if err := json.Unmarshal(r.Magnet, &m); err != nil {
		return nil, err
	}
	return []command.Option{command.WithMagnet(&m)}, nil
}

func (s *Server) setSource(c fiber.Ctx) error { return s.reconnect(c, true) }
func (s *Server) setTarget(c fiber.Ctx) error { return s.reconnect(c, false) }

func (s *Server) reconnect(c fiber.Ctx, source bool) error {
	var req connectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	opts, err := req.options()
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid magnet"})
	}

	ss, err := s.sessions.get(c.Context(), c.Params("id"))
	if err != nil {
		return s.internal(c, err)
	}
	if ss == nil {
		return c.Status(404).JSON(fiber.Map{"error": "diagram not found"})
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()

	edge := ss.index.GetEdge(c.Params("edge"))
	if edge == nil {
		return c.Status(404).JSON(fiber.Map{"error": "edge not found"})
	}
	// An unknown node id is left for the command to report as a violation.
	var node *diagram.Node
	if req.NodeID != "" {
		if node = ss.index.GetNode(req.NodeID); node == nil {
			node = &diagram.Node{ID: req.NodeID}
		}
	}

	var cmd command.Command
	if source {
		cmd, err = command.NewSetConnectionSourceNode(node, edge, opts...)
	} else {
		cmd, err = command.NewSetConnectionTargetNode(node, edge, opts...)
	}
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	if req.DryRun {
		return result(c, ss.history.Allow(cmd))
	}

	before := endpoints(edge)
	res := ss.history.Execute(cmd)
	if !res.IsError() {
		if err := s.persist(c.Context(), ss, edge, before); err != nil {
			s.sessions.forget(ss.graph.ID)
			return s.internal(c, err)
		}
	}
	return result(c, res)
}

// edgeCommand is implemented by commands that rewire a single edge.
type edgeCommand interface {
	EdgeID() string
}

func (s *Server) undo(c fiber.Ctx) error {
	ss, err := s.sessions.get(c.Context(), c.Params("id"))
	if err != nil {
		return s.internal(c, err)
	}
	if ss == nil {
		return c.Status(404).JSON(fiber.Map{"error": "diagram not found"})
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()

	var edge *diagram.Edge
	var before [2]string
	if ec, ok := ss.history.Peek().(edgeCommand); ok {
		if edge = ss.index.GetEdge(ec.EdgeID()); edge != nil {
			before = endpoints(edge)
		}
	}

	_, res, err := ss.history.Undo()
	if errors.Is(err, command.ErrNothingToUndo) {
		return c.Status(409).JSON(fiber.Map{"error": "nothing to undo"})
	}
	if err != nil {
		return s.internal(c, err)
	}
	if !res.IsError() && edge != nil {
		if err := s.persist(c.Context(), ss, edge, before); err != nil {
			s.sessions.forget(ss.graph.ID)
			return s.internal(c, err)
		}
	}
	return result(c, res)
}

func endpoints(e *diagram.Edge) [2]string {
	return [2]string{e.SourceID, e.TargetID}
}

// persist writes edge and every node that was or is one of its endpoints.
func (s *Server) persist(ctx context.Context, ss *session, edge *diagram.Edge, before [2]string) error {
	var nodes []*diagram.Node
	seen := make(map[string]bool, 4)
	for _, id := range append(before[:], edge.SourceID, edge.TargetID) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if n := ss.index.GetNode(id); n != nil {
			nodes = append(nodes, n)
		}
	}
	return s.cfg.Store.UpdateConnection(ctx, ss.graph.ID, edge, nodes...)
}

func result(c fiber.Ctx, res command.Result) error {
	if res.IsError() {
		return c.Status(422).JSON(res)
	}
	return c.JSON(res)
}

func (s *Server) internal(c fiber.Ctx, err error) error {
	s.log.Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.Status(500).JSON(fiber.Map{"error": err.Error()})
}
