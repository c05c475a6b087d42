package mcp

import "github.com/mark3labs/mcp-go/mcp"

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("get_health",
			mcp.WithDescription("Check broker connectivity and diagnostic counters"),
		),
		s.handleGetHealth,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_diagnostics",
			mcp.WithDescription("List recent failures that were not surfaced to callers (failed publishes, dropped change reports)"),
		),
		s.handleGetDiagnostics,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_devices",
			mcp.WithDescription("List a user's devices with their last observed state"),
			mcp.WithString("user_id",
				mcp.Required(),
				mcp.Description("Owner user id"),
			),
		),
		s.handleListDevices,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_device",
			mcp.WithDescription("Get one device owned by a user"),
			mcp.WithString("user_id",
				mcp.Required(),
				mcp.Description("Owner user id"),
			),
			mcp.WithString("device_id",
				mcp.Required(),
				mcp.Description("Device id"),
			),
		),
		s.handleGetDevice,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("send_directive",
			mcp.WithDescription("Dispatch a smart home directive envelope and return the response envelope"),
			mcp.WithObject("directive",
				mcp.Required(),
				mcp.Description("Either {\"directive\": {...}} or the inner directive object"),
			),
		),
		s.handleSendDirective,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("set_power",
			mcp.WithDescription("Turn a device on or off as the user owning the token"),
			mcp.WithString("token",
				mcp.Required(),
				mcp.Description("Account-linking bearer token"),
			),
			mcp.WithString("device_id",
				mcp.Required(),
				mcp.Description("Device id"),
			),
			mcp.WithBoolean("on",
				mcp.Required(),
				mcp.Description("true to turn on, false to turn off"),
			),
		),
		s.handleSetPower,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("set_brightness",
			mcp.WithDescription("Set a dimmable device's brightness as the user owning the token"),
			mcp.WithString("token",
				mcp.Required(),
				mcp.Description("Account-linking bearer token"),
			),
			mcp.WithString("device_id",
				mcp.Required(),
				mcp.Description("Device id"),
			),
			mcp.WithNumber("brightness",
				mcp.Required(),
				mcp.Description("Brightness percent 0-100"),
			),
		),
		s.handleSetBrightness,
	)
}
