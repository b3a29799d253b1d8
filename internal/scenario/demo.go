package scenario

import "time"

// DemoSuiteName is the name of the built-in suite.
const DemoSuiteName = "Playwright Feature Demo"

// MockedItems is the body served for the intercepted data endpoint.
const MockedItems = `[{"id":99,"name":"Mocked Item","value":"Mocked Value"}]`

// Demo returns the built-in suite exercising the demo page.
func Demo() Suite {
	return Suite{
		Name: DemoSuiteName,
		Scenarios: []Scenario{
			basicInteractions(),
			formSubmission(),
			ajaxLoading(),
			fileUpload(),
			dialogs(),
			iframeContent(),
			screenshots(),
			networkInterception(),
			performanceMetrics(),
		},
	}
}

func basicInteractions() Scenario {
	return Scenario{
		Title: "should handle basic interactions",
		Tags:  []string{"interaction"},
		Steps: []Step{
			Click(Page("#clickButton")),
			ExpectVisible(Page("#clickResult")),
			Fill(Page("#textInput"), "Hello Playwright"),
			ExpectText(Page("#textOutput"), "Hello Playwright"),
		},
	}
}

func formSubmission() Scenario {
	return Scenario{
		Title: "should handle form submissions",
		Tags:  []string{"form"},
		Steps: []Step{
			Fill(Page("#username"), "testuser"),
			Fill(Page("#password"), "password123"),
			SelectOption(Page("#dropdown"), "option2"),
			Check(Page("#agreement")),
			ExpectChecked(Page("#agreement")),
			Click(Page("#submitButton")),
			ExpectVisible(Page("#formResult")),
		},
	}
}

func ajaxLoading() Scenario {
	return Scenario{
		Title: "should handle AJAX content loading",
		Tags:  []string{"ajax"},
		Steps: []Step{
			Click(Page("#loadDataButton")),
			ExpectVisible(Page("#loading")),
			ExpectVisible(Page("#dataTable")).WithTimeout(5 * time.Second),
			ExpectCount(Page("#dataTable tbody tr"), 3),
			ExpectText(Page("#dataTable tbody tr").Nth(1).Locator("td").Nth(1), "Item 2"),
		},
	}
}

func fileUpload() Scenario {
	return Scenario{
		Title: "should handle file uploads",
		Tags:  []string{"upload"},
		Steps: []Step{
			UploadFile(Page("#fileUpload"), FilePayload{
				Name:     "test-file.txt",
				MimeType: "text/plain",
				Content:  []byte("This is a test file content"),
			}),
			ExpectContains(Page("#fileInfo"), "test-file.txt"),
		},
	}
}

func dialogs() Scenario {
	return Scenario{
		Title: "should handle dialogs",
		Tags:  []string{"dialog"},
		Steps: []Step{
			OnDialog(DialogPolicy{
				Default: DialogResponse{Accept: true},
				ByKind: map[DialogKind]DialogResponse{
					DialogPrompt: {Accept: true, PromptText: "Playwright User"},
				},
			}),
			Click(Page("#alertButton")).TriggersDialog(),
			ExpectContains(Page("#dialogResult"), "Alert was acknowledged"),
			Click(Page("#confirmButton")).TriggersDialog(),
			ExpectContains(Page("#dialogResult"), "Confirm result: true"),
			Click(Page("#promptButton")).TriggersDialog(),
			ExpectContains(Page("#dialogResult"), "Prompt result: Playwright User"),
		},
	}
}

func iframeContent() Scenario {
	frame := Frame("#demoFrame")
	return Scenario{
		Title: "should interact with iframe content",
		Tags:  []string{"iframe"},
		Steps: []Step{
			Click(frame.Locator("#frameButton")),
			ExpectVisible(frame.Locator("#frameResult")),
			ExpectVisible(Page("#notification")),
			ExpectText(Page("#notification"), "Iframe button was clicked!"),
		},
	}
}

func screenshots() Scenario {
	return Scenario{
		Title: "should take screenshots for visual comparison",
		Tags:  []string{"screenshot"},
		Steps: []Step{
			Screenshot("screenshots/full-page.png", true),
			ScreenshotElement(Page(".section").First(), "screenshots/section-element.png"),
		},
	}
}

func networkInterception() Scenario {
	return Scenario{
		Title: "should demonstrate network interception",
		Tags:  []string{"network"},
		Steps: []Step{
			RouteAbortRequests("**/*.{png,jpg,jpeg}"),
			RouteFulfillRequests("**/api/data", 200, "application/json", MockedItems),
			Navigate(""),
			Evaluate(`fetch("/api/data").then(function(r) { return r.json(); })`).
				Expecting([]any{map[string]any{"id": 99, "name": "Mocked Item", "value": "Mocked Value"}}).
				Named("fetch /api/data returns the mocked body"),
		},
	}
}

func performanceMetrics() Scenario {
	return Scenario{
		Title:         "should measure performance metrics",
		Tags:          []string{"performance"},
		Observational: true,
		Steps: []Step{
			MeasureNavigation(""),
			Evaluate(`window.performance.timing.toJSON()`).StoreAs("timing"),
		},
	}
}
