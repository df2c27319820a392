package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/quickstep/internal/classifier"
	"github.com/1broseidon/quickstep/internal/ipc"
)

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, ipc.StatusData, error) {
	st, err := s.control.GetStatus()
	if err != nil {
		return nil, ipc.StatusData{}, err
	}
	return nil, *st, nil
}

func (s *Server) handleSwipe(_ context.Context, _ *mcpsdk.CallToolRequest, args SwipeInput) (*mcpsdk.CallToolResult, ipc.GestureResult, error) {
	if args.Display < 0 {
		return nil, ipc.GestureResult{}, fmt.Errorf("display must be >= 0")
	}
	if args.Fingers < 0 || args.Fingers > 4 {
		return nil, ipc.GestureResult{}, fmt.Errorf("fingers must be 0, 2, 3 or 4")
	}
	res, err := s.control.Swipe(ipc.SwipePayload{
		Display:            args.Display,
		Steps:              args.Steps,
		VelocityX:          args.VelocityX,
		VelocityY:          args.VelocityY,
		Cancel:             args.Cancel,
		PauseMotion:        args.PauseMotion,
		CanSlowSwipeGoHome: args.CanSlowSwipeGoHome,
		Pages:              args.Pages,
		Fingers:            args.Fingers,
		Hold:               args.Hold,
		Wait:               !args.Hold,
	})
	if err != nil {
		return nil, ipc.GestureResult{}, err
	}
	s.logger.Info("swipe played", "display", res.Display, "gesture", res.GestureID, "end_target", res.EndTarget)
	return nil, *res, nil
}

func (s *Server) handleOpenOverview(_ context.Context, _ *mcpsdk.CallToolRequest, args OpenOverviewInput) (*mcpsdk.CallToolResult, ipc.GestureResult, error) {
	if args.Display < 0 {
		return nil, ipc.GestureResult{}, fmt.Errorf("display must be >= 0")
	}
	res, err := s.control.Overview(ipc.OverviewPayload{Display: args.Display, Wait: true})
	if err != nil {
		return nil, ipc.GestureResult{}, err
	}
	return nil, *res, nil
}

func (s *Server) handleClassify(_ context.Context, _ *mcpsdk.CallToolRequest, args ClassifyInput) (*mcpsdk.CallToolResult, ipc.ClassifyResult, error) {
	payload := classifyPayload(args)
	if !args.Local {
		res, err := s.control.Classify(payload)
		if err == nil {
			return nil, *res, nil
		}
		s.logger.Warn("daemon classify failed, classifying locally", "error", err)
	}

	d, th := payload.Describe(s.thresholds)
	return nil, ipc.NewClassifyResult(d, th), nil
}

func classifyPayload(args ClassifyInput) ipc.ClassifyPayload {
	p := ipc.ClassifyPayload{
		AutoFling: true,
		Release: classifier.Release{
			Velocity:             classifier.Velocity{X: args.VelocityX, Y: args.VelocityY},
			EndVelocityY:         args.VelocityY,
			IsCancel:             args.Cancel,
			HorizontalSlopPassed: args.HorizontalSlopPassed,
		},
		Context: classifier.Context{
			IsAtomic:                   args.Atomic,
			OverviewDisabled:           args.OverviewDisabled,
			IsScrollingToNewTask:       args.ScrollingToNewTask,
			IsCenteredOnNonRunningTask: args.CenteredOnOtherTask,
			MotionPaused:               args.MotionPaused,
			CanSlowSwipeGoHome:         args.CanSlowSwipeGoHome,
			HorizontalSlopEnabled:      args.HorizontalSlop,
			DesktopWindowingEnabled:    args.DesktopWindowing,
			NextTaskIsDesktop:          args.NextTaskIsDesktop,
			RunningTaskIsDesktop:       args.RunningTaskIsDesktop,
		},
	}
	if args.FlingThreshold > 0 || args.FlingSpeed > 0 {
		th := classifier.DefaultThresholds()
		if args.FlingThreshold > 0 {
			th.FlingThreshold = args.FlingThreshold
		}
		if args.FlingSpeed > 0 {
			th.FlingSpeed = args.FlingSpeed
		}
		p.Thresholds = &th
	}
	return p
}
