package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

type menuService struct {
	menus ports.MenuRepository
	audit ports.AuditRepository
	sink  ports.AuditSink
}

func NewMenuService(repos ports.Repositories, sink ports.AuditSink) ports.MenuService {
	return &menuService{menus: repos.Menus, audit: repos.Audit, sink: sink}
}

func (s *menuService) Create(ctx context.Context, in ports.CreateMenuInput) (*domain.Menu, error) {
	name := strings.TrimSpace(in.Name)
	path := strings.TrimSpace(in.Path)
	if name == "" || path == "" {
		return nil, domain.Invalid("menu name and path are required")
	}
	if in.ParentID != "" {
		if err := s.requireParent(ctx, in.ParentID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	menu := &domain.Menu{
		ID:            uuid.NewString(),
		Name:          name,
		Path:          path,
		Icon:          in.Icon,
		PermissionKey: strings.TrimSpace(in.PermissionKey),
		ParentID:      in.ParentID,
		Sort:          in.Sort,
		IsVisible:     in.IsVisible,
		IsEnabled:     in.IsEnabled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	auditLog := domain.NewAuditLog(in.Actor, domain.ActionMenuCreated, domain.ResourceMenu, menu.ID)
	err := s.menus.Create(ctx, menu)
	if err == nil {
		auditLog.After = menu.Snapshot()
	}
	record(s.sink, auditLog, err)
	if err != nil {
		return nil, err
	}
	return menu, nil
}

func (s *menuService) requireParent(ctx context.Context, parentID string) error {
	if _, err := s.menus.FindByID(ctx, parentID); err != nil {
		if errors.Is(err, domain.ErrMenuNotFound) {
			return domain.ErrMenuParentNotFound
		}
		return err
	}
	return nil
}

func (s *menuService) Get(ctx context.Context, id string) (*domain.Menu, error) {
	return s.menus.FindByID(ctx, id)
}

func (s *menuService) List(ctx context.Context) ([]*domain.Menu, error) {
	menus, err := s.menus.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list menus: %w", err)
	}
	domain.SortMenus(menus)
	return menus, nil
}

func (s *menuService) Tree(ctx context.Context) ([]*domain.MenuNode, error) {
	menus, err := s.menus.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("menu tree: %w", err)
	}
	return domain.BuildForest(menus), nil
}

// Update applies the changes after checking that a new parent exists and
// does not sit below the menu itself.
func (s *menuService) Update(ctx context.Context, in ports.UpdateMenuInput) (*domain.Menu, error) {
	menu, err := s.menus.FindByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	before := menu.Snapshot()

	if in.ParentID != nil && *in.ParentID != menu.ParentID {
		if err := s.checkParent(ctx, menu.ID, *in.ParentID); err != nil {
			return nil, err
		}
		menu.ParentID = *in.ParentID
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.Invalid("menu name is required")
		}
		menu.Name = name
	}
	if in.Path != nil {
		path := strings.TrimSpace(*in.Path)
		if path == "" {
			return nil, domain.Invalid("menu path is required")
		}
		menu.Path = path
	}
	if in.Icon != nil {
		menu.Icon = *in.Icon
	}
	if in.PermissionKey != nil {
		menu.PermissionKey = strings.TrimSpace(*in.PermissionKey)
	}
	if in.Sort != nil {
		menu.Sort = *in.Sort
	}
	if in.IsVisible != nil {
		menu.IsVisible = *in.IsVisible
	}
	if in.IsEnabled != nil {
		menu.IsEnabled = *in.IsEnabled
	}
	menu.UpdatedAt = time.Now().UTC()

	auditLog := domain.NewAuditLog(in.Actor, domain.ActionMenuUpdated, domain.ResourceMenu, menu.ID)
	auditLog.Before = before
	err = s.menus.Update(ctx, menu)
	if err == nil {
		auditLog.After = menu.Snapshot()
	}
	record(s.sink, auditLog, err)
	if err != nil {
		return nil, err
	}
	return menu, nil
}

func (s *menuService) checkParent(ctx context.Context, menuID, parentID string) error {
	if parentID == "" {
		return nil
	}

	all, err := s.menus.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("check menu parent: %w", err)
	}
	live := false
	for _, m := range all {
		if m.ID == parentID {
			live = true
			break
		}
	}
	if !live {
		return domain.ErrMenuParentNotFound
	}
	if domain.WouldCreateCycle(menuID, parentID, domain.ParentIndex(all)) {
		return domain.ErrMenuCycle
	}
	return nil
}

func (s *menuService) Delete(ctx context.Context, id string, actor domain.Actor) error {
	menu, err := s.menus.FindByID(ctx, id)
	if err != nil {
		return err
	}

	auditLog := domain.NewAuditLog(actor, domain.ActionMenuDeleted, domain.ResourceMenu, id)
	auditLog.Before = menu.Snapshot()

	children, err := s.menus.CountChildren(ctx, id)
	if err != nil {
		return fmt.Errorf("delete menu: %w", err)
	}
	if children > 0 {
		record(s.sink, auditLog, domain.ErrMenuHasChildren)
		return domain.ErrMenuHasChildren
	}

	err = s.menus.Delete(ctx, id, time.Now().UTC())
	record(s.sink, auditLog, err)
	return err
}

func (s *menuService) Sort(ctx context.Context, in ports.SortMenusInput) error {
	if len(in.Items) == 0 {
		return domain.Invalid("sort items cannot be empty")
	}
	seen := make(map[string]struct{}, len(in.Items))
	for _, it := range in.Items {
		if it.ID == "" {
			return domain.Invalid("sort item id is required")
		}
		if _, dup := seen[it.ID]; dup {
			return domain.Invalid(fmt.Sprintf("duplicate menu id %s", it.ID))
		}
		seen[it.ID] = struct{}{}
	}

	err := s.menus.UpdateSort(ctx, in.Items)
	for _, it := range in.Items {
		auditLog := domain.NewAuditLog(in.Actor, domain.ActionMenuSorted, domain.ResourceMenu, it.ID)
		auditLog.After = map[string]any{"sort": it.Sort}
		record(s.sink, auditLog, err)
	}
	return err
}

// Logs lists the audit records of one menu, newest first.
func (s *menuService) Logs(ctx context.Context, menuID string, page, limit int) (*ports.Page[*domain.AuditLog], error) {
	page, limit = ports.NormalizePage(page, limit)
	items, total, err := s.audit.List(ctx, ports.AuditFilter{
		ResourceType: domain.ResourceMenu,
		ResourceID:   menuID,
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		return nil, fmt.Errorf("menu logs: %w", err)
	}
	return ports.NewPage(items, total, page, limit), nil
}
