package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// registerModules installs the battle table into v's LState:
//
//	battle.actor(uid)    -> table or nil
//	battle.allies(uid)   -> array of living allies, including uid
//	battle.enemies(uid)  -> array of living enemies
//	battle.random(n)     -> integer in [1, n]
//	battle.log(msg)      -> logs at Debug
//
// Actor tables carry uid, name, faction, hp, max_hp, mana, max_mana, rank,
// dead, and statuses (array of status IDs).
func (m *Manager) registerModules(v *vm) {
	L := v.L
	mod := L.NewTable()
	L.SetField(mod, "actor", L.NewFunction(func(L *lua.LState) int {
		uid := L.CheckString(1)
		if v.view == nil {
			L.Push(lua.LNil)
			return 1
		}
		info, ok := v.view.Actor(uid)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(actorTable(L, info))
		return 1
	}))
	L.SetField(mod, "allies", L.NewFunction(func(L *lua.LState) int {
		uid := L.CheckString(1)
		var list []ActorInfo
		if v.view != nil {
			list = v.view.Allies(uid)
		}
		L.Push(actorList(L, list))
		return 1
	}))
	L.SetField(mod, "enemies", L.NewFunction(func(L *lua.LState) int {
		uid := L.CheckString(1)
		var list []ActorInfo
		if v.view != nil {
			list = v.view.Enemies(uid)
		}
		L.Push(actorList(L, list))
		return 1
	}))
	L.SetField(mod, "random", L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		if n <= 0 {
			L.ArgError(1, "n must be positive")
			return 0
		}
		L.Push(lua.LNumber(m.roller.Intn(n) + 1))
		return 1
	}))
	L.SetField(mod, "log", L.NewFunction(func(L *lua.LState) int {
		m.logger.Debug("lua", zap.String("msg", L.CheckString(1)))
		return 0
	}))
	L.SetGlobal("battle", mod)
}

func actorTable(L *lua.LState, a ActorInfo) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("uid", lua.LString(a.UID))
	t.RawSetString("name", lua.LString(a.Name))
	t.RawSetString("faction", lua.LString(a.Faction))
	t.RawSetString("hp", lua.LNumber(a.HP))
	t.RawSetString("max_hp", lua.LNumber(a.MaxHP))
	t.RawSetString("mana", lua.LNumber(a.Mana))
	t.RawSetString("max_mana", lua.LNumber(a.MaxMana))
	t.RawSetString("rank", lua.LNumber(a.Rank))
	t.RawSetString("dead", lua.LBool(a.Dead))
	statuses := L.NewTable()
	for _, id := range a.Statuses {
		statuses.Append(lua.LString(id))
	}
	t.RawSetString("statuses", statuses)
	return t
}

func actorList(L *lua.LState, list []ActorInfo) *lua.LTable {
	t := L.NewTable()
	for _, a := range list {
		t.Append(actorTable(L, a))
	}
	return t
}
