package access

type (
	NavItem struct {
		Key       Module `json:"key"`
		Label     string `json:"label"`
		Path      string `json:"path"`
		Order     int    `json:"order"`
		CanCreate bool   `json:"can_create"`
	}

	QuickAddItem struct {
		Key   Module `json:"key"`
		Label string `json:"label"`
	}

	Navigation struct {
		Items    []NavItem      `json:"items"`
		QuickAdd []QuickAddItem `json:"quick_add"`
	}
)

var navItems = []NavItem{
	{Key: ModuleDashboard, Label: "Dashboard", Path: "/dashboard"},
	{Key: ModuleLeads, Label: "Leads", Path: "/leads"},
	{Key: ModuleStudents, Label: "Students", Path: "/students"},
	{Key: ModuleApplications, Label: "Applications", Path: "/applications"},
	{Key: ModuleAdmissions, Label: "Admissions", Path: "/admissions"},
	{Key: ModuleEvents, Label: "Events", Path: "/events"},
	{Key: ModuleRegistrations, Label: "Registrations", Path: "/event-registrations"},
	{Key: ModuleUsers, Label: "Users", Path: "/users"},
	{Key: ModuleSettings, Label: "Settings", Path: "/settings"},
}

var quickAddItems = []QuickAddItem{
	{Key: ModuleLeads, Label: "New Lead"},
	{Key: ModuleStudents, Label: "New Student"},
	{Key: ModuleApplications, Label: "New Application"},
	{Key: ModuleAdmissions, Label: "New Admission"},
	{Key: ModuleEvents, Label: "New Event"},
	{Key: ModuleRegistrations, Label: "New Registration"},
}

// NavigationFor filters the sidebar and the header quick-add menu down to what the actor may access.
func NavigationFor(a Actor) Navigation {
	nav := Navigation{
		Items:    make([]NavItem, 0, len(navItems)),
		QuickAdd: make([]QuickAddItem, 0, len(quickAddItems)),
	}
	for i, item := range navItems {
		perm := a.Permission(item.Key)
		if perm == None {
			continue
		}
		item.Order = i + 1
		item.CanCreate = perm == Write && item.Key != ModuleDashboard && item.Key != ModuleSettings
		nav.Items = append(nav.Items, item)
	}
	for _, item := range quickAddItems {
		if a.Can(item.Key, Write) {
			nav.QuickAdd = append(nav.QuickAdd, item)
		}
	}
	return nav
}
