package ast

// Walk calls fn on n and then on every node below it, depth first.
// Returns true as soon as fn returns true.
func Walk(n Node, fn func(Node) bool) bool {
	if n == nil {
		return false
	}
	if fn(n) {
		return true
	}
	switch x := n.(type) {
	case *Program:
		return walkStmts(x.Statements, fn)
	case *LetStmt:
		return walkExpr(x.Value, fn)
	case *AssignStmt:
		return walkExpr(x.Target, fn) || walkExpr(x.Value, fn)
	case *ExprStmt:
		return walkExpr(x.Expression, fn)
	case *BlockStmt:
		return walkStmts(x.Body, fn)
	case *IfStmt:
		return walkExpr(x.Condition, fn) || walkStmts(x.Body, fn) || walkStmts(x.ElseBody, fn)
	case *WhileStmt:
		return walkExpr(x.Condition, fn) || walkStmts(x.Body, fn)
	case *ReturnStmt:
		return walkExpr(x.Value, fn)
	case *FuncDef:
		return walkStmts(x.Body, fn)
	case *UnaryExpr:
		return walkExpr(x.Operand, fn)
	case *BinaryExpr:
		return walkExpr(x.Left, fn) || walkExpr(x.Right, fn)
	case *CallExpr:
		return walkExpr(x.Func, fn) || walkExprs(x.Args, fn)
	case *MethodCall:
		return walkExpr(x.Receiver, fn) || walkExprs(x.Args, fn)
	case *FieldExpr:
		return walkExpr(x.Object, fn)
	case *IndexExpr:
		return walkExpr(x.Object, fn) || walkExpr(x.Index, fn)
	case *Closure:
		return walkStmts(x.Body, fn)
	}
	return false
}

// walkExpr guards against typed nil expressions stored in optional fields.
func walkExpr(e Expr, fn func(Node) bool) bool {
	if e == nil {
		return false
	}
	return Walk(e, fn)
}

func walkExprs(es []Expr, fn func(Node) bool) bool {
	for _, e := range es {
		if walkExpr(e, fn) {
			return true
		}
	}
	return false
}

func walkStmts(ss []Statement, fn func(Node) bool) bool {
	for _, s := range ss {
		if Walk(s, fn) {
			return true
		}
	}
	return false
}

